// Package classifier wraps a custom-trained classification model with a
// small fixed output vector and reduces its scores to a single yes/no
// decision per image.
package classifier

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/HashSteck/chicken-count/ml"
	"github.com/HashSteck/chicken-count/ml/inference"
	"github.com/HashSteck/chicken-count/raster"
	"github.com/HashSteck/chicken-count/vision/classification"
)

const (
	// DefaultDecisionThreshold is the confidence the positive class must
	// exceed for a true decision.
	DefaultDecisionThreshold = 0.7
	// DefaultInputSize is the square input resolution assumed when the
	// model file does not declare one.
	DefaultInputSize = 224
)

// Config holds the parameters needed to set up a classifier. ModelLocation
// accepts a local path or a remote URL. DecisionThreshold is a pointer so
// an explicit 0 stays distinct from unset.
type Config struct {
	ModelLocation     string   `json:"model_location"`
	Labels            []string `json:"labels"`
	PositiveLabel     string   `json:"positive_label"`
	DecisionThreshold *float64 `json:"decision_threshold"`
	InputSize         int      `json:"input_size"`
	NumThreads        int      `json:"num_threads"`
}

func (conf *Config) fillDefaults() {
	if conf.DecisionThreshold == nil {
		def := DefaultDecisionThreshold
		conf.DecisionThreshold = &def
	}
	if conf.InputSize == 0 {
		conf.InputSize = DefaultInputSize
	}
}

// model is the single capability the classifier needs from the inference
// backend. Satisfied by *inference.TFLiteStruct.
type model interface {
	Infer(ctx context.Context, input *tensor.Dense) (ml.Tensors, error)
	Close() error
}

// Classifier runs a binary (or small fixed-vector) classification model
// over single images. Loaded once, read-only afterwards.
type Classifier struct {
	model  model
	info   inference.TFLiteInfo
	conf   Config
	logger golog.Logger
}

// New fetches and loads the classification model. Both a missing local
// file and a failed remote fetch surface as a model-load error, fatal to
// the run.
func New(ctx context.Context, conf Config, logger golog.Logger) (*Classifier, error) {
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
	logger.Debugw("classification model ready", "path", loaded.ModelPath(), "input_type", loaded.Info.InputTensorType)
	if len(conf.Labels) == 0 {
		logger.Warnw("no class labels configured, outputs will be reported by index")
	}

	return &Classifier{model: loaded, info: loaded.Info, conf: conf, logger: logger}, nil
}

func (c *Classifier) inputSize() (int, int) {
	if c.info.InputWidth > 0 && c.info.InputHeight > 0 {
		return c.info.InputWidth, c.info.InputHeight
	}
	return c.conf.InputSize, c.conf.InputSize
}

// Classify resizes the image to the model's fixed input resolution, runs
// inference, and reduces the output vector to a labeled decision. The
// reported dimensions are those of the original image.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (*classification.Result, error) {
	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()
	inW, inH := c.inputSize()

	buf := raster.NewPixelBufferFromImage(raster.Resize(img, uint(inW), uint(inH)))

	// classifiers in this family take an explicit batch dimension of 1
	withBatch := len(c.info.InputShape) != 3
	var input *tensor.Dense
	var err error
	switch c.info.InputTensorType {
	case inference.UInt8:
		input, err = ml.BuildImageTensorUInt8(buf, 3, withBatch)
	default:
		input, err = ml.BuildImageTensor(buf, 3, withBatch)
	}
	if err != nil {
		return nil, err
	}

	outMap, err := c.model.Infer(ctx, input)
	if err != nil {
		return nil, err
	}
	out, ok := outMap["out0"]
	if !ok {
		return nil, errors.Errorf("no output tensor among [%v]", ml.TensorNames(outMap))
	}

	scores, err := ml.ConvertToFloat64Slice(out.Data())
	if err != nil {
		return nil, err
	}
	// quantized models emit raw bytes, map them back to [0, 1]
	if _, quantized := out.Data().([]uint8); quantized {
		for i := range scores {
			scores[i] /= 255.0
		}
	}

	all, err := classification.FormatClassificationOutputs(scores, c.conf.Labels)
	if err != nil {
		return nil, err
	}
	return classification.NewResult(origW, origH, all, c.conf.PositiveLabel, *c.conf.DecisionThreshold)
}

// Close releases the loaded model.
func (c *Classifier) Close() error {
	return c.model.Close()
}
