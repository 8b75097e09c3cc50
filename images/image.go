package images

import (
	"bytes"
	"image"
	"os"

	// Registered decoders.
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"

	"github.com/pkg/errors"

	"github.com/nvr-ai/onnx-tester/util"
)

// ImageFormat represents supported image formats.
type ImageFormat string

// ImageFormat constants, named as reported by image.Decode.
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
)

// Image represents an encoded image with its format and dimensions.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Decode decodes an encoded image.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded image.
//   - *Image: The encoded image with its detected format and size.
//   - error: An error if the bytes are not a supported image.
func Decode(data []byte) (image.Image, *Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(err, "image decoding failed")
	}

	size := SizeOf(img)
	return img, &Image{
		Format: ImageFormat(format),
		Data:   data,
		Width:  size.Width,
		Height: size.Height,
	}, nil
}

// Load reads and decodes an image file.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: util.ErrIO if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(util.ErrIO, "reading image %s: %v", path, err)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(util.ErrIO, "decoding image %s: %v", path, err)
	}

	return img, nil
}
