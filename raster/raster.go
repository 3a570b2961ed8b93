// Package raster loads raster image files from disk and flattens them into
// the pixel buffers the rest of the pipeline consumes.
package raster

import (
	"image"

	// registers the stdlib decoders for the supported formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	// bmp is the one supported format the stdlib does not decode.
	_ "golang.org/x/image/bmp"
)

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("image file not found")
	// ErrDecode is returned when a file cannot be parsed as a supported raster format.
	ErrDecode = errors.New("cannot decode image")
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// IsSupportedImage reports whether the path carries one of the supported
// image extensions. The check is case-insensitive and does not touch the file.
func IsSupportedImage(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ReadImageFromFile opens and decodes the image at the given path.
func ReadImageFromFile(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, errors.Wrapf(err, "cannot open %s", path)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%s: %v", path, err)
	}
	return img, nil
}

// Resize scales the image to the given dimensions with bilinear interpolation.
func Resize(img image.Image, width, height uint) image.Image {
	return resize.Resize(width, height, img, resize.Bilinear)
}

// PixelBuffer is a decoded image flattened into row-major interleaved bytes.
// It is treated as immutable once produced.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// NewPixelBufferFromImage flattens an image into an RGBA byte buffer,
// one pixel at a time in row-major order.
func NewPixelBufferFromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, 0, w*h*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pix = append(pix, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return &PixelBuffer{Width: w, Height: h, Channels: 4, Pix: pix}
}
