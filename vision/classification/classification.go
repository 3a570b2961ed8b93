// Package classification defines the scored labels returned by an image
// classifier and the binary decision built on top of them.
package classification

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/HashSteck/chicken-count/ml"
)

// Classification returns a confidence score of the classification and the
// label of the class.
type Classification interface {
	Score() float64
	Label() string
}

// NewClassification creates a simple classification.
func NewClassification(score float64, label string) Classification {
	return &classification{score, label}
}

type classification struct {
	score float64
	label string
}

func (c *classification) Score() float64 {
	return c.score
}

func (c *classification) Label() string {
	return c.label
}

func (c *classification) String() string {
	return fmt.Sprintf("Label: %s, Score: %.2f", c.label, c.score)
}

// Classifications is a list of classifications in the model's output order.
type Classifications []Classification

// Best returns the highest scoring classification. The scan runs left to
// right and only replaces on a strictly greater score, so ties go to the
// lowest index. Calling it repeatedly on the same list yields the same
// answer.
func (cc Classifications) Best() (Classification, error) {
	if len(cc) == 0 {
		return nil, errors.New("no classifications to choose from")
	}
	best := cc[0]
	for _, c := range cc[1:] {
		if c.Score() > best.Score() {
			best = c
		}
	}
	return best, nil
}

// FormatClassificationOutputs pairs each raw model score with its
// configured label, in output-unit order. Labels that run short are
// synthesized as "Class {index}". Scores that are not yet confidences are
// normalized first.
func FormatClassificationOutputs(scores []float64, labels []string) (Classifications, error) {
	if len(scores) == 0 {
		return nil, errors.New("classifier produced no scores")
	}
	confs := ml.CheckClassificationScores(scores)
	out := make(Classifications, 0, len(confs))
	for i, s := range confs {
		label := fmt.Sprintf("Class %d", i)
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, NewClassification(s, label))
	}
	return out, nil
}

// Decide reports whether best counts as a positive: its label must equal
// the positive class label AND its score must strictly exceed the decision
// threshold. Winning the argmax alone is not enough.
func Decide(best Classification, positiveLabel string, threshold float64) bool {
	return strings.EqualFold(best.Label(), positiveLabel) && best.Score() > threshold
}
