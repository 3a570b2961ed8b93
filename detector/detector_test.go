package detector

import (
	"context"
	"image"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/HashSteck/chicken-count/ml"
	"github.com/HashSteck/chicken-count/ml/inference"
)

type fakeModel struct {
	out    ml.Tensors
	err    error
	input  *tensor.Dense
	closed bool
}

func (f *fakeModel) Infer(ctx context.Context, input *tensor.Dense) (ml.Tensors, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeModel) Close() error {
	f.closed = true
	return nil
}

// boxes are [ymin, xmin, ymax, xmax] normalized to the model input, the
// order SSD style models emit.
func detectorOutputs(locations, categories, scores []float32) ml.Tensors {
	n := len(scores)
	return ml.Tensors{
		"out0": tensor.New(tensor.WithShape(1, n, 4), tensor.WithBacking(locations)),
		"out1": tensor.New(tensor.WithShape(1, n), tensor.WithBacking(categories)),
		"out2": tensor.New(tensor.WithShape(1, n), tensor.WithBacking(scores)),
		"out3": tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{float32(n)})),
	}
}

func newTestDetector(t *testing.T, m model, tensorType string) *Detector {
	t.Helper()
	threshold := 0.5
	conf := Config{TargetLabel: "bird", Threshold: &threshold}
	return &Detector{
		model: m,
		info: inference.TFLiteInfo{
			InputShape:      []int{1, 300, 300, 3},
			InputHeight:     300,
			InputWidth:      300,
			InputChannels:   3,
			InputTensorType: tensorType,
		},
		labels: []string{"person", "bird", "cat"},
		conf:   conf,
		filter: targetFilter(conf.TargetLabel, *conf.Threshold),
		logger: golog.NewTestLogger(t),
	}
}

func TestDetect(t *testing.T) {
	fake := &fakeModel{out: detectorOutputs(
		[]float32{
			0.1, 0.1, 0.3, 0.3,
			0.5, 0.5, 0.7, 0.7,
			0.0, 0.0, 1.0, 1.0,
		},
		[]float32{1, 1, 0},
		[]float32{0.873, 0.765, 0.652},
	)}
	d := newTestDetector(t, fake, inference.UInt8)

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	res, err := d.Detect(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)

	// the image gets resized to the model input before tensorizing
	test.That(t, fake.input.Shape(), test.ShouldResemble, tensor.Shape{1, 300, 300, 3})
	test.That(t, fake.input.Dtype(), test.ShouldEqual, tensor.Uint8)

	test.That(t, res.ImageWidth, test.ShouldEqual, 640)
	test.That(t, res.ImageHeight, test.ShouldEqual, 480)
	test.That(t, res.TotalCount(), test.ShouldEqual, 3)
	test.That(t, res.FilteredCount(), test.ShouldEqual, 2)
	test.That(t, res.Positive(), test.ShouldBeTrue)

	// boxes come back in pixel coordinates of the original image
	test.That(t, res.All[0].Label(), test.ShouldEqual, "bird")
	test.That(t, *res.All[0].BoundingBox(), test.ShouldResemble, image.Rect(64, 48, 192, 144))
	test.That(t, res.All[2].Label(), test.ShouldEqual, "person")
	test.That(t, res.Filtered[0].Score(), test.ShouldAlmostEqual, 0.873, 1e-6)
	test.That(t, res.Filtered[1].Score(), test.ShouldAlmostEqual, 0.765, 1e-6)
}

func TestDetectFloatInput(t *testing.T) {
	fake := &fakeModel{out: detectorOutputs(
		[]float32{0.0, 0.0, 0.5, 0.5},
		[]float32{1},
		[]float32{0.9},
	)}
	d := newTestDetector(t, fake, inference.Float32)

	res, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 300, 300)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fake.input.Dtype(), test.ShouldEqual, tensor.Float32)
	test.That(t, res.FilteredCount(), test.ShouldEqual, 1)
}

func TestDetectBadInputType(t *testing.T) {
	d := newTestDetector(t, &fakeModel{}, "int64")
	_, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid model input type")
}

func TestDetectInferenceError(t *testing.T) {
	fake := &fakeModel{err: errors.Wrap(inference.ErrInference, "interpreter invoke failed")}
	d := newTestDetector(t, fake, inference.UInt8)
	_, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	test.That(t, errors.Is(err, inference.ErrInference), test.ShouldBeTrue)
}

func TestClose(t *testing.T) {
	fake := &fakeModel{}
	d := newTestDetector(t, fake, inference.UInt8)
	test.That(t, d.Close(), test.ShouldBeNil)
	test.That(t, fake.closed, test.ShouldBeTrue)
}

func TestConfigDefaults(t *testing.T) {
	conf := Config{ModelLocation: "model.tflite"}
	conf.fillDefaults()
	test.That(t, conf.TargetLabel, test.ShouldEqual, DefaultTargetLabel)
	test.That(t, *conf.Threshold, test.ShouldEqual, DefaultThreshold)

	threshold := 0.25
	conf = Config{TargetLabel: "cat", Threshold: &threshold}
	conf.fillDefaults()
	test.That(t, conf.TargetLabel, test.ShouldEqual, "cat")
	test.That(t, *conf.Threshold, test.ShouldEqual, 0.25)

	// an explicit zero is a real setting, not a request for the default
	zero := 0.0
	conf = Config{Threshold: &zero}
	conf.fillDefaults()
	test.That(t, *conf.Threshold, test.ShouldEqual, 0.0)
}
