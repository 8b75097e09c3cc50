// Package images - Image geometry and decoding utilities.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is a bounding box in corner form.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// FromCenter converts a center-form box to corner form.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The box as (x1, y1, x2, y2).
//
// Example:
//
// ```go
//
//	r := FromCenter(10, 10, 4, 2) // Rect{X1: 8, Y1: 9, X2: 12, Y2: 11}
//
// ```
func FromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Scale multiplies the x coordinates by sx and the y coordinates by sy.
//
// Arguments:
//   - sx: The horizontal scale factor.
//   - sy: The vertical scale factor.
//
// Returns:
//   - Rect: The scaled box.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{
		X1: r.X1 * sx,
		Y1: r.Y1 * sy,
		X2: r.X2 * sx,
		Y2: r.Y2 * sy,
	}
}

// Width returns X2 - X1.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2 - Y1.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of the box, or 0 for degenerate boxes.
func (r Rect) Area() float32 {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Rectangle converts the box to an image.Rectangle.
//
// Coordinates are truncated toward zero and the corners are not reordered, so
// the result matches a plain integer cast of each coordinate.
//
// Returns:
//   - image.Rectangle: The integer box.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: int(r.X1), Y: int(r.Y1)},
		Max: image.Point{X: int(r.X2), Y: int(r.Y2)},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU = Area of Intersection / Area of Union
//
//   - 1.0 means the boxes are identical.
//   - 0.0 means the boxes don't overlap (touching edges count as no overlap).
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example:
//
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Inclusion-exclusion.
	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
