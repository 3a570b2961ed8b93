package classification

import (
	"fmt"
	"io"
)

// Result is the classifier's verdict on one image. Immutable once created.
type Result struct {
	ImageWidth    int
	ImageHeight   int
	All           Classifications
	Best          Classification
	PositiveLabel string
	Threshold     float64
	Decision      bool
}

// NewResult selects the best prediction from all and applies the decision
// rule against the positive label and threshold.
func NewResult(width, height int, all Classifications, positiveLabel string, threshold float64) (*Result, error) {
	best, err := all.Best()
	if err != nil {
		return nil, err
	}
	return &Result{
		ImageWidth:    width,
		ImageHeight:   height,
		All:           all,
		Best:          best,
		PositiveLabel: positiveLabel,
		Threshold:     threshold,
		Decision:      Decide(best, positiveLabel, threshold),
	}, nil
}

// Confidence is the score of the best prediction.
func (r *Result) Confidence() float64 {
	return r.Best.Score()
}

// Positive reports whether the decision came out true.
func (r *Result) Positive() bool {
	return r.Decision
}

// WriteReport prints the per-image console report: dimensions, every
// label/confidence pair as a percentage, the best prediction, and the
// decision line.
func (r *Result) WriteReport(w io.Writer, path string) {
	fmt.Fprintf(w, "%s (%dx%d)\n", path, r.ImageWidth, r.ImageHeight)
	for _, c := range r.All {
		fmt.Fprintf(w, "  %s: %.1f%%\n", c.Label(), c.Score()*100)
	}
	fmt.Fprintf(w, "  best: %s (%.1f%%)\n", r.Best.Label(), r.Confidence()*100)
	fmt.Fprintf(w, "  %s: %t\n", r.PositiveLabel, r.Decision)
}
