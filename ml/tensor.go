package ml

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/HashSteck/chicken-count/raster"
)

// ErrShape is returned when a pixel buffer's byte length does not agree
// with its stated dimensions.
var ErrShape = errors.New("pixel buffer shape mismatch")

func checkBufferShape(buf *raster.PixelBuffer, channels int) error {
	if buf.Width <= 0 || buf.Height <= 0 {
		return errors.Wrapf(ErrShape, "invalid dimensions %dx%d", buf.Width, buf.Height)
	}
	if channels > buf.Channels {
		return errors.Wrapf(ErrShape, "requested %d channels from a %d channel buffer", channels, buf.Channels)
	}
	if len(buf.Pix) != buf.Width*buf.Height*buf.Channels {
		return errors.Wrapf(ErrShape, "have %d bytes, want %d for %dx%dx%d",
			len(buf.Pix), buf.Width*buf.Height*buf.Channels, buf.Width, buf.Height, buf.Channels)
	}
	return nil
}

func imageShape(buf *raster.PixelBuffer, channels int, withBatch bool) []int {
	if withBatch {
		return []int{1, buf.Height, buf.Width, channels}
	}
	return []int{buf.Height, buf.Width, channels}
}

// BuildImageTensor converts a pixel buffer into a normalized float32 tensor.
// Pixels are walked in row-major order, the first channels color components
// of each pixel are kept (alpha dropped), and every byte is divided by 255
// to map into [0, 1]. The shape is [height, width, channels], with a leading
// batch dimension of 1 when withBatch is set.
func BuildImageTensor(buf *raster.PixelBuffer, channels int, withBatch bool) (*tensor.Dense, error) {
	if err := checkBufferShape(buf, channels); err != nil {
		return nil, err
	}
	data := make([]float32, 0, buf.Width*buf.Height*channels)
	for i := 0; i < len(buf.Pix); i += buf.Channels {
		for c := 0; c < channels; c++ {
			data = append(data, float32(buf.Pix[i+c])/255.0)
		}
	}
	return tensor.New(tensor.WithShape(imageShape(buf, channels, withBatch)...), tensor.WithBacking(data)), nil
}

// BuildImageTensorUInt8 is the quantized-model counterpart of
// BuildImageTensor, keeping the raw [0, 255] bytes.
func BuildImageTensorUInt8(buf *raster.PixelBuffer, channels int, withBatch bool) (*tensor.Dense, error) {
	if err := checkBufferShape(buf, channels); err != nil {
		return nil, err
	}
	data := make([]uint8, 0, buf.Width*buf.Height*channels)
	for i := 0; i < len(buf.Pix); i += buf.Channels {
		for c := 0; c < channels; c++ {
			data = append(data, buf.Pix[i+c])
		}
	}
	return tensor.New(tensor.WithShape(imageShape(buf, channels, withBatch)...), tensor.WithBacking(data)), nil
}
