package classification

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestFormatClassificationOutputs(t *testing.T) {
	all, err := FormatClassificationOutputs([]float64{0.152, 0.848}, []string{"No Chicken", "Chicken"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(all), test.ShouldEqual, 2)
	test.That(t, all[0].Label(), test.ShouldEqual, "No Chicken")
	test.That(t, all[1].Label(), test.ShouldEqual, "Chicken")
	test.That(t, all[1].Score(), test.ShouldAlmostEqual, 0.848, 1e-9)

	_, err = FormatClassificationOutputs(nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFormatClassificationOutputsSynthesizesLabels(t *testing.T) {
	all, err := FormatClassificationOutputs([]float64{0.2, 0.3, 0.5}, []string{"only one"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all[0].Label(), test.ShouldEqual, "only one")
	test.That(t, all[1].Label(), test.ShouldEqual, "Class 1")
	test.That(t, all[2].Label(), test.ShouldEqual, "Class 2")
}

func TestBestTieBreak(t *testing.T) {
	all := Classifications{
		NewClassification(0.4, "first"),
		NewClassification(0.4, "second"),
		NewClassification(0.2, "third"),
	}
	best, err := all.Best()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, best.Label(), test.ShouldEqual, "first")

	// idempotent: a second reduction gives the same answer
	again, err := all.Best()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, best)

	_, err = Classifications{}.Best()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecide(t *testing.T) {
	// true only when label matches AND score strictly exceeds the threshold
	test.That(t, Decide(NewClassification(0.848, "Chicken"), "Chicken", 0.7), test.ShouldBeTrue)
	test.That(t, Decide(NewClassification(0.65, "Chicken"), "Chicken", 0.7), test.ShouldBeFalse)
	test.That(t, Decide(NewClassification(0.95, "No Chicken"), "Chicken", 0.7), test.ShouldBeFalse)
	test.That(t, Decide(NewClassification(0.7, "Chicken"), "Chicken", 0.7), test.ShouldBeFalse)
	test.That(t, Decide(NewClassification(0.9, "chicken"), "Chicken", 0.7), test.ShouldBeTrue)
}

func TestNewResultScenario(t *testing.T) {
	all, err := FormatClassificationOutputs([]float64{0.152, 0.848}, []string{"No Chicken", "Chicken"})
	test.That(t, err, test.ShouldBeNil)

	r, err := NewResult(800, 600, all, "Chicken", 0.7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Best.Label(), test.ShouldEqual, "Chicken")
	test.That(t, r.Confidence(), test.ShouldAlmostEqual, 0.848, 1e-9)
	test.That(t, r.Decision, test.ShouldBeTrue)
	test.That(t, r.Positive(), test.ShouldBeTrue)
}

func TestNewResultArgmaxBelowThreshold(t *testing.T) {
	all := Classifications{
		NewClassification(0.45, "No Chicken"),
		NewClassification(0.55, "Chicken"),
	}
	r, err := NewResult(10, 10, all, "Chicken", 0.7)
	test.That(t, err, test.ShouldBeNil)
	// argmax won but the threshold was not exceeded
	test.That(t, r.Best.Label(), test.ShouldEqual, "Chicken")
	test.That(t, r.Decision, test.ShouldBeFalse)
}

func TestResultWriteReport(t *testing.T) {
	all := Classifications{
		NewClassification(0.152, "No Chicken"),
		NewClassification(0.848, "Chicken"),
	}
	r, err := NewResult(320, 240, all, "Chicken", 0.7)
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	r.WriteReport(&buf, "coop.png")
	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "coop.png (320x240)")
	test.That(t, out, test.ShouldContainSubstring, "No Chicken: 15.2%")
	test.That(t, out, test.ShouldContainSubstring, "Chicken: 84.8%")
	test.That(t, out, test.ShouldContainSubstring, "best: Chicken (84.8%)")
	test.That(t, out, test.ShouldContainSubstring, "Chicken: true")
}
