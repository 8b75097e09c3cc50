package images

import (
	"fmt"
	"image"
)

// Size is a width and height in pixels.
type Size struct {
	// The width in pixels.
	Width int `json:"width" yaml:"width"`
	// The height in pixels.
	Height int `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Point returns the size as an image.Point (X = width, Y = height).
func (s Size) Point() image.Point {
	return image.Point{X: s.Width, Y: s.Height}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// SizeOf returns the size of an image's bounds.
func SizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

// ScaleFactors computes independent per-axis factors mapping coordinates in
// the from space onto the to space.
//
// The factors are not aspect-preserving and carry no letterbox offset: a
// stretched resize is inverted by stretching back.
//
// Arguments:
//   - from: The source coordinate space (e.g. the model input size).
//   - to: The destination coordinate space (e.g. the original image size).
//
// Returns:
//   - sx: to.Width / from.Width.
//   - sy: to.Height / from.Height.
func ScaleFactors(from, to Size) (sx, sy float32) {
	sx = float32(float64(to.Width) / float64(from.Width))
	sy = float32(float64(to.Height) / float64(from.Height))
	return sx, sy
}
