// Package detector wraps a pretrained multi-class detection model and turns
// images into bounding-box results filtered to a target class.
package detector

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/HashSteck/chicken-count/ml"
	"github.com/HashSteck/chicken-count/ml/inference"
	"github.com/HashSteck/chicken-count/raster"
	"github.com/HashSteck/chicken-count/vision/objectdetection"
)

const (
	// DefaultTargetLabel is the class counted when none is configured.
	DefaultTargetLabel = "bird"
	// DefaultThreshold is the score a detection must exceed to be counted.
	DefaultThreshold = 0.5
)

// Config holds the parameters needed to set up a detector. Threshold is a
// pointer so an explicit 0 (keep every scored detection) stays distinct
// from unset.
type Config struct {
	ModelLocation string   `json:"model_location"`
	LabelPath     string   `json:"label_path"`
	TargetLabel   string   `json:"target_label"`
	Threshold     *float64 `json:"threshold"`
	NumThreads    int      `json:"num_threads"`
}

func (conf *Config) fillDefaults() {
	if conf.TargetLabel == "" {
		conf.TargetLabel = DefaultTargetLabel
	}
	if conf.Threshold == nil {
		def := DefaultThreshold
		conf.Threshold = &def
	}
}

// model is the single capability the detector needs from the inference
// backend. Satisfied by *inference.TFLiteStruct.
type model interface {
	Infer(ctx context.Context, input *tensor.Dense) (ml.Tensors, error)
	Close() error
}

// Detector runs a multi-class detection model over single images. The
// model is loaded once and never mutated afterwards, so one Detector can
// serve a whole batch.
type Detector struct {
	model  model
	info   inference.TFLiteInfo
	labels []string
	conf   Config
	filter objectdetection.Postprocessor
	logger golog.Logger
}

// New loads the detection model and its label file. A load failure here is
// fatal to the run; there is no pipeline without a model.
func New(ctx context.Context, conf Config, logger golog.Logger) (*Detector, error) {
	conf.fillDefaults()

	var loader *inference.TFLiteModelLoader
	var err error
	if conf.NumThreads <= 0 {
		loader, err = inference.NewDefaultTFLiteModelLoader()
	} else {
		loader, err = inference.NewTFLiteModelLoader(conf.NumThreads)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not get loader")
	}

	loaded, err := loader.Load(ctx, conf.ModelLocation)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load model from %s", conf.ModelLocation)
	}
	logger.Debugw("detection model ready", "path", loaded.ModelPath(), "input_type", loaded.Info.InputTensorType)

	var labels []string
	if conf.LabelPath != "" {
		labels, err = ReadLabels(conf.LabelPath)
		if err != nil {
			logger.Warnw("no usable label file, detections will carry class indices", "path", conf.LabelPath, "error", err)
		}
	}

	return &Detector{
		model:  loaded,
		info:   loaded.Info,
		labels: labels,
		conf:   conf,
		filter: targetFilter(conf.TargetLabel, *conf.Threshold),
		logger: logger,
	}, nil
}

func targetFilter(label string, threshold float64) objectdetection.Postprocessor {
	byLabel := objectdetection.NewLabelFilter(label)
	byScore := objectdetection.NewStrictScoreFilter(threshold)
	return func(in []objectdetection.Detection) []objectdetection.Detection {
		return byScore(byLabel(in))
	}
}

// Detect runs one image through the model and interprets the raw output at
// the image's original resolution. The tensor built here lives only for
// this call.
func (d *Detector) Detect(ctx context.Context, img image.Image) (*objectdetection.Result, error) {
	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()

	resized := img
	if d.info.InputWidth > 0 && d.info.InputHeight > 0 &&
		(d.info.InputWidth != origW || d.info.InputHeight != origH) {
		resized = raster.Resize(img, uint(d.info.InputWidth), uint(d.info.InputHeight))
	}
	buf := raster.NewPixelBufferFromImage(resized)

	withBatch := len(d.info.InputShape) == 4
	var input *tensor.Dense
	var err error
	switch d.info.InputTensorType {
	case inference.UInt8:
		input, err = ml.BuildImageTensorUInt8(buf, 3, withBatch)
	case inference.Float32:
		input, err = ml.BuildImageTensor(buf, 3, withBatch)
	default:
		return nil, errors.Errorf("invalid model input type %q, try uint8 or float32", d.info.InputTensorType)
	}
	if err != nil {
		return nil, err
	}

	outMap, err := d.model.Infer(ctx, input)
	if err != nil {
		return nil, err
	}

	all, err := objectdetection.FormatDetectionOutputs(outMap, origW, origH, d.labels, nil)
	if err != nil {
		return nil, err
	}
	return &objectdetection.Result{
		ImageWidth:  origW,
		ImageHeight: origH,
		TargetLabel: d.conf.TargetLabel,
		All:         all,
		Filtered:    d.filter(all),
	}, nil
}

// Close releases the loaded model.
func (d *Detector) Close() error {
	return d.model.Close()
}
