// Package inference loads pretrained model files and runs tensors through
// them on the local CPU.
package inference

import "github.com/pkg/errors"

var (
	// ErrModelLoad is returned when a model cannot be fetched, parsed, or
	// prepared for inference. Distinct from a missing input image.
	ErrModelLoad = errors.New("failed to load model")
	// ErrInference is returned when a prepared model fails during invocation.
	ErrInference = errors.New("failed to run inference")
)

const (
	// UInt8 is one of the possible input/output types for tensors.
	UInt8 = "uint8"
	// Float32 is one of the possible input/output types for tensors.
	Float32 = "float32"
)
