// Package objectdetection defines the detections returned by an object
// detector and the tools to produce them from raw model output.
package objectdetection

import (
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/HashSteck/chicken-count/ml"
)

// Detection returns a bounding box around the object and a confidence score
// of the detection.
type Detection interface {
	BoundingBox() *image.Rectangle
	Score() float64
	Label() string
}

// NewDetection creates a simple 2D detection.
func NewDetection(boundingBox image.Rectangle, score float64, label string) Detection {
	return &detection2D{boundingBox, score, label}
}

type detection2D struct {
	boundingBox image.Rectangle
	score       float64
	label       string
}

func (d *detection2D) BoundingBox() *image.Rectangle {
	return &d.boundingBox
}

func (d *detection2D) Score() float64 {
	return d.score
}

func (d *detection2D) Label() string {
	return d.label
}

func (d *detection2D) String() string {
	return fmt.Sprintf("Label: %s, Score: %.2f, Location: %v", d.label, d.score, d.boundingBox)
}

// DefaultBoxOrder gives the position of xmin, ymin, xmax, ymax within each
// 4-value box of the location tensor. Detection models in the SSD family
// emit boxes as [ymin, xmin, ymax, xmax].
var DefaultBoxOrder = []int{1, 0, 3, 2}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func unpack(outMap ml.Tensors, name string) ([]float64, error) {
	t, ok := outMap[name]
	if !ok {
		return nil, errors.Errorf("no tensor named %q among output tensors [%v]", name, ml.TensorNames(outMap))
	}
	return ml.ConvertToFloat64Slice(t.Data())
}

// FormatDetectionOutputs reshapes the raw output tensors of a detection
// model into labeled detections. Box coordinates arrive normalized to
// [0, 1] in the model's input space and leave as pixel coordinates in the
// original, unresized image. The model's own output order is preserved.
func FormatDetectionOutputs(outMap ml.Tensors, origW, origH int, labels []string, boxOrder []int) ([]Detection, error) {
	locations, err := unpack(outMap, "out0")
	if err != nil {
		return nil, err
	}
	categories, err := unpack(outMap, "out1")
	if err != nil {
		return nil, err
	}
	scores, err := unpack(outMap, "out2")
	if err != nil {
		return nil, err
	}
	if len(boxOrder) < 4 {
		boxOrder = DefaultBoxOrder
	}

	n := len(scores)
	if count, err := unpack(outMap, "out3"); err == nil && len(count) > 0 && int(count[0]) < n {
		n = int(count[0])
	}
	if len(locations) < 4*n || len(categories) < n {
		return nil, errors.Errorf("malformed detector output: %d boxes and %d categories for %d scores",
			len(locations)/4, len(categories), n)
	}

	detections := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		xmin := clamp(locations[4*i+boxOrder[0]], 0, 1) * float64(origW)
		ymin := clamp(locations[4*i+boxOrder[1]], 0, 1) * float64(origH)
		xmax := clamp(locations[4*i+boxOrder[2]], 0, 1) * float64(origW)
		ymax := clamp(locations[4*i+boxOrder[3]], 0, 1) * float64(origH)
		rect := image.Rect(
			int(math.Round(xmin)), int(math.Round(ymin)),
			int(math.Round(xmax)), int(math.Round(ymax)),
		)
		labelNum := int(categories[i])
		label := fmt.Sprintf("%d", labelNum)
		if labelNum >= 0 && labelNum < len(labels) {
			label = labels[labelNum]
		}
		detections = append(detections, NewDetection(rect, scores[i], label))
	}
	return detections, nil
}
