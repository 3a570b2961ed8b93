package detector

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeLabelFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestReadLabelsLines(t *testing.T) {
	path := writeLabelFile(t, "person\nbird\ncat\n")
	labels, err := ReadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"person", "bird", "cat"})
}

func TestReadLabelsSingleLine(t *testing.T) {
	// some metadata files pack every label onto one line
	path := writeLabelFile(t, "person,bird,cat")
	labels, err := ReadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"person", "bird", "cat"})

	path = writeLabelFile(t, "person bird cat")
	labels, err = ReadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"person", "bird", "cat"})
}

func TestReadLabelsMissingFile(t *testing.T) {
	_, err := ReadLabels(filepath.Join(t.TempDir(), "nope.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}
