package inference

import (
	"context"
	"log"
	"runtime"
	"strconv"

	tflite "github.com/mattn/go-tflite"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/HashSteck/chicken-count/ml"
)

// TFLiteModelLoader prepares tflite models for inference. The constructors
// are fields so tests can swap them out.
type TFLiteModelLoader struct {
	newModelFromFile      func(path string) *tflite.Model
	newInterpreterOptions func() *tflite.InterpreterOptions
	newInterpreter        func(model *tflite.Model, options *tflite.InterpreterOptions) *tflite.Interpreter
	numThreads            int
}

// NewDefaultTFLiteModelLoader returns a loader that uses all available CPUs.
func NewDefaultTFLiteModelLoader() (*TFLiteModelLoader, error) {
	return NewTFLiteModelLoader(runtime.NumCPU())
}

// NewTFLiteModelLoader returns a loader that uses numThreads CPUs.
func NewTFLiteModelLoader(numThreads int) (*TFLiteModelLoader, error) {
	if numThreads <= 0 {
		return nil, errors.New("numThreads must be a positive integer")
	}
	loader := &TFLiteModelLoader{
		newModelFromFile:      tflite.NewModelFromFile,
		newInterpreterOptions: tflite.NewInterpreterOptions,
		newInterpreter:        tflite.NewInterpreter,
		numThreads:            numThreads,
	}
	return loader, nil
}

// TFLiteInfo describes the input and output layout of a loaded model.
type TFLiteInfo struct {
	InputShape        []int
	InputHeight       int
	InputWidth        int
	InputChannels     int
	InputTensorType   string
	OutputTensorCount int
	OutputTensorTypes []string
}

// TFLiteStruct holds a loaded model, its interpreter, and layout info.
// Loaded once, it is read-only and reused across every image in a run.
type TFLiteStruct struct {
	model              *tflite.Model
	interpreter        *tflite.Interpreter
	interpreterOptions *tflite.InterpreterOptions
	Info               TFLiteInfo
	modelPath          string
}

// Load prepares the model at modelLocation for inference. The location may
// be a local file path or an http(s) URL; remote models are fetched into
// the user cache directory first.
func (loader TFLiteModelLoader) Load(ctx context.Context, modelLocation string) (*TFLiteStruct, error) {
	modelPath, err := fetchModel(ctx, modelLocation)
	if err != nil {
		return nil, err
	}

	model := loader.newModelFromFile(modelPath)
	if model == nil {
		return nil, errors.Wrapf(ErrModelLoad, "cannot parse %s", modelPath)
	}

	options := loader.newInterpreterOptions()
	if options == nil {
		model.Delete()
		return nil, errors.Wrap(ErrModelLoad, "interpreter options failed to be created")
	}
	options.SetNumThread(loader.numThreads)
	options.SetErrorReporter(func(msg string, userData interface{}) {
		log.Println(msg)
	}, nil)

	interpreter := loader.newInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.Wrap(ErrModelLoad, "failed to create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.Wrap(ErrModelLoad, "failed to allocate tensors")
	}

	return &TFLiteStruct{
		model:              model,
		interpreter:        interpreter,
		interpreterOptions: options,
		Info:               getInfo(interpreter),
		modelPath:          modelPath,
	}, nil
}

func getInfo(interpreter *tflite.Interpreter) TFLiteInfo {
	input := interpreter.GetInputTensor(0)
	shape := make([]int, 0, input.NumDims())
	for i := 0; i < input.NumDims(); i++ {
		shape = append(shape, input.Dim(i))
	}

	info := TFLiteInfo{
		InputShape:        shape,
		InputTensorType:   tensorTypeName(input.Type()),
		OutputTensorCount: interpreter.GetOutputTensorCount(),
	}
	// shape is either [h, w, c] or [1, h, w, c]
	if len(shape) == 4 {
		info.InputHeight, info.InputWidth, info.InputChannels = shape[1], shape[2], shape[3]
	} else if len(shape) == 3 {
		info.InputHeight, info.InputWidth, info.InputChannels = shape[0], shape[1], shape[2]
	}
	for i := 0; i < info.OutputTensorCount; i++ {
		info.OutputTensorTypes = append(info.OutputTensorTypes, tensorTypeName(interpreter.GetOutputTensor(i).Type()))
	}
	return info
}

func tensorTypeName(t tflite.TensorType) string {
	switch t {
	case tflite.UInt8:
		return UInt8
	case tflite.Float32:
		return Float32
	default:
		return t.String()
	}
}

// Infer copies the input tensor into the interpreter, invokes the model,
// and returns a copy of every output tensor, keyed out0..outN. All buffers
// handed back are owned by the caller; nothing from the interpreter's
// transient memory is retained past the return.
func (model *TFLiteStruct) Infer(ctx context.Context, input *tensor.Dense) (ml.Tensors, error) {
	in := model.interpreter.GetInputTensor(0)
	var status tflite.Status
	switch in.Type() {
	case tflite.UInt8:
		data, ok := input.Data().([]uint8)
		if !ok {
			return nil, errors.Wrapf(ErrInference, "model wants a uint8 input, got %T", input.Data())
		}
		status = in.CopyFromBuffer(data)
	case tflite.Float32:
		data, ok := input.Data().([]float32)
		if !ok {
			return nil, errors.Wrapf(ErrInference, "model wants a float32 input, got %T", input.Data())
		}
		status = in.CopyFromBuffer(data)
	default:
		return nil, errors.Wrapf(ErrInference, "unsupported model input type %s", in.Type())
	}
	if status != tflite.OK {
		return nil, errors.Wrap(ErrInference, "copying input to interpreter failed")
	}

	if status := model.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Wrap(ErrInference, "interpreter invoke failed")
	}

	output := ml.Tensors{}
	for i := 0; i < model.interpreter.GetOutputTensorCount(); i++ {
		currTensor := model.interpreter.GetOutputTensor(i)
		shape := make([]int, 0, currTensor.NumDims())
		for d := 0; d < currTensor.NumDims(); d++ {
			shape = append(shape, currTensor.Dim(d))
		}
		var backing interface{}
		switch currTensor.Type() {
		case tflite.Float32:
			buf := make([]float32, int(currTensor.ByteSize())/4)
			if s := currTensor.CopyToBuffer(buf); s != tflite.OK {
				return nil, errors.Wrapf(ErrInference, "copying output %d failed", i)
			}
			backing = buf
		case tflite.UInt8:
			buf := make([]uint8, int(currTensor.ByteSize()))
			if s := currTensor.CopyToBuffer(buf); s != tflite.OK {
				return nil, errors.Wrapf(ErrInference, "copying output %d failed", i)
			}
			backing = buf
		default:
			return nil, errors.Wrapf(ErrInference, "unsupported output tensor type %s", currTensor.Type())
		}
		output["out"+strconv.Itoa(i)] = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	}
	return output, nil
}

// ModelPath returns the resolved local path of the loaded model file.
func (model *TFLiteStruct) ModelPath() string {
	return model.modelPath
}

// Close deletes the instance and related parts.
func (model *TFLiteStruct) Close() error {
	model.model.Delete()
	model.interpreterOptions.Delete()
	model.interpreter.Delete()
	return nil
}
