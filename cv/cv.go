// Package cv - OpenCV image I/O, input blobs and detection annotation.
package cv

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/images"
	"github.com/nvr-ai/onnx-tester/models/postprocess"
	"github.com/nvr-ai/onnx-tester/util"
)

// Annotation style.
var (
	BoxColor      = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	BoxThickness  = 2
	TextScale     = 0.5
	TextThickness = 2
	// TextOffset is how far above the box top the label baseline sits.
	TextOffset = 10
)

// Read loads a BGR image.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - gocv.Mat: The image. The caller must Close it.
//   - images.Size: The width and height of the image.
//   - error: util.ErrIO if the file is missing or cannot be decoded.
func Read(path string) (gocv.Mat, images.Size, error) {
	if err := util.ValidateFile(path, util.ImageExtensions); err != nil {
		return gocv.NewMat(), images.Size{}, err
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), images.Size{}, errors.Wrapf(util.ErrIO, "could not decode image %s", path)
	}
	return mat, images.Size{Width: mat.Cols(), Height: mat.Rows()}, nil
}

// Blob resizes an image to the model input with bilinear interpolation,
// scales it by 1/255 and lays it out as [1, 3, H, W]. Channels stay in the
// BGR order OpenCV decodes them in.
//
// Arguments:
//   - mat: The BGR image.
//   - size: The model input size.
//
// Returns:
//   - *tensor.Dense: A float32 tensor owning a copy of the blob data.
//   - error: An error if the image is empty or the blob cannot be read.
func Blob(mat gocv.Mat, size images.Size) (*tensor.Dense, error) {
	if mat.Empty() {
		return nil, errors.New("empty image")
	}
	if !size.Valid() {
		return nil, errors.Errorf("invalid input size %v", size)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, size.Point(), 0, 0, gocv.InterpolationLinear)

	blob := gocv.BlobFromImage(resized, 1.0/255.0, size.Point(), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "error reading blob data")
	}
	channels := mat.Channels()
	if len(data) != channels*size.Width*size.Height {
		return nil, errors.Errorf("blob has %d values, want %d", len(data), channels*size.Width*size.Height)
	}

	backing := make([]float32, len(data))
	copy(backing, data)
	return tensor.New(tensor.WithShape(1, channels, size.Height, size.Width), tensor.WithBacking(backing)), nil
}

// Annotate draws each detection as a green rectangle with its label above
// the top-left corner.
//
// Arguments:
//   - mat: The image to draw on.
//   - results: The detections in image coordinates.
//   - names: Optional class names. Nil labels detections "Class <id>".
func Annotate(mat *gocv.Mat, results []postprocess.Result, names []string) {
	for _, r := range results {
		rect := r.Box.Rectangle()
		gocv.Rectangle(mat, rect, BoxColor, BoxThickness)
		gocv.PutText(mat, r.Label(names), image.Pt(rect.Min.X, rect.Min.Y-TextOffset),
			gocv.FontHersheySimplex, TextScale, BoxColor, TextThickness)
	}
}

// Write encodes an image to path. The format follows the extension.
//
// Returns:
//   - error: util.ErrIO if the image cannot be written.
func Write(path string, mat gocv.Mat) error {
	if ok := gocv.IMWrite(path, mat); !ok {
		return errors.Wrapf(util.ErrIO, "could not write image %s", path)
	}
	return nil
}
