// Package pipeline sequences single-image processing over collections of
// image files and aggregates the outcomes.
package pipeline

import (
	"context"
	"io"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/HashSteck/chicken-count/classifier"
	"github.com/HashSteck/chicken-count/detector"
	"github.com/HashSteck/chicken-count/raster"
)

// Result is what the batch layer needs from either detector variant:
// whether the image counts as a positive, and how to report it.
type Result interface {
	Positive() bool
	WriteReport(w io.Writer, path string)
}

// Processor runs the full pipeline for one image file: load, normalize,
// infer, interpret.
type Processor func(ctx context.Context, path string) (Result, error)

// NewDetectProcessor builds a Processor around a loaded detector handle.
func NewDetectProcessor(d *detector.Detector) Processor {
	return func(ctx context.Context, path string) (Result, error) {
		img, err := raster.ReadImageFromFile(path)
		if err != nil {
			return nil, err
		}
		return d.Detect(ctx, img)
	}
}

// NewClassifyProcessor builds a Processor around a loaded classifier handle.
func NewClassifyProcessor(c *classifier.Classifier) Processor {
	return func(ctx context.Context, path string) (Result, error) {
		img, err := raster.ReadImageFromFile(path)
		if err != nil {
			return nil, err
		}
		return c.Classify(ctx, img)
	}
}

// Entry records the outcome for one path. Result is nil when processing
// failed, in which case Err says why.
type Entry struct {
	Path   string
	Result Result
	Err    error
}

// BatchSummary aggregates a whole run. Entries preserve input order.
type BatchSummary struct {
	Entries   []Entry
	Attempted int
	Succeeded int
	Positive  int

	err error
}

// Err returns every per-image error combined, or nil when all images
// processed cleanly. Callers decide whether a partially failed batch is
// fatal.
func (s *BatchSummary) Err() error {
	return s.err
}

// ProcessMany runs the processor over the paths strictly in input order,
// one image at a time. A failure on one path is logged and recorded, never
// aborting the rest of the batch.
func ProcessMany(ctx context.Context, proc Processor, paths []string, logger golog.Logger) *BatchSummary {
	summary := &BatchSummary{Entries: make([]Entry, 0, len(paths))}
	for _, path := range paths {
		summary.Attempted++
		res, err := proc(ctx, path)
		if err != nil {
			logger.Warnw("failed to process image", "path", path, "error", err)
			summary.Entries = append(summary.Entries, Entry{Path: path, Err: err})
			summary.err = multierr.Append(summary.err, errors.Wrap(err, path))
			continue
		}
		summary.Succeeded++
		if res.Positive() {
			summary.Positive++
		}
		summary.Entries = append(summary.Entries, Entry{Path: path, Result: res})
	}
	return summary
}
