package objectdetection

import (
	"fmt"
	"io"
)

// Result is everything the detector concluded about one image. Immutable
// once created.
type Result struct {
	ImageWidth  int
	ImageHeight int
	TargetLabel string
	All         []Detection
	Filtered    []Detection
}

// TotalCount is the number of objects the model reported, before filtering.
func (r *Result) TotalCount() int {
	return len(r.All)
}

// FilteredCount is the number of detections matching the target label and
// score threshold.
func (r *Result) FilteredCount() int {
	return len(r.Filtered)
}

// Positive reports whether at least one target-class object was found.
func (r *Result) Positive() bool {
	return len(r.Filtered) > 0
}

// WriteReport prints the per-image console report: dimensions, counts, the
// filtered detections with rounded pixel coordinates and percentage
// confidences, then the full unfiltered class list.
func (r *Result) WriteReport(w io.Writer, path string) {
	fmt.Fprintf(w, "%s (%dx%d)\n", path, r.ImageWidth, r.ImageHeight)
	fmt.Fprintf(w, "  objects detected: %d\n", r.TotalCount())
	fmt.Fprintf(w, "  %s detected: %d\n", r.TargetLabel, r.FilteredCount())
	for i, d := range r.Filtered {
		box := d.BoundingBox()
		fmt.Fprintf(w, "  %d. %s %.1f%% at (%d, %d) size %dx%d\n",
			i+1, d.Label(), d.Score()*100, box.Min.X, box.Min.Y, box.Dx(), box.Dy())
	}
	if len(r.All) > 0 {
		fmt.Fprintf(w, "  all detections:\n")
		for _, d := range r.All {
			fmt.Fprintf(w, "    %s: %.1f%%\n", d.Label(), d.Score()*100)
		}
	}
}
