package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// boxColumns is the number of geometry columns (cx, cy, w, h) that precede
// the class scores.
const boxColumns = 4

// Candidates is a transposed view of a raw detection output.
//
// The model emits channel-major data shaped [1, 4+K, N]. Candidates drops the
// batch axis and exposes it row-wise: row i is
// [cx, cy, w, h, s_0 … s_{K-1}] for candidate box i. Scores are held at
// float64 and compared at the precision of the source dtype.
type Candidates struct {
	data     []float64
	single   bool
	channels int
	boxes    int
	scores   []float64
}

// NewCandidates validates the shape of raw and wraps it.
//
// Accepted shapes are [1, 4+K, N] and [4+K, N] with K >= 1. N may be zero.
//
// Arguments:
//   - raw: The raw model output.
//
// Returns:
//   - *Candidates: The row view.
//   - error: ErrShape if the tensor cannot be viewed as [N, 4+K], ErrInput if
//     it is nil or not numeric.
func NewCandidates(raw tensor.Tensor) (*Candidates, error) {
	if raw == nil {
		return nil, errors.Wrap(ErrInput, "raw output is nil")
	}

	shape := raw.Shape()
	var channels, boxes int
	switch len(shape) {
	case 3:
		if shape[0] != 1 {
			return nil, errors.Wrapf(ErrShape, "batch axis must be 1, got shape %v", shape)
		}
		channels, boxes = shape[1], shape[2]
	case 2:
		channels, boxes = shape[0], shape[1]
	default:
		return nil, errors.Wrapf(ErrShape, "expected [1, 4+K, N] or [4+K, N], got shape %v", shape)
	}

	if channels < boxColumns+1 {
		return nil, errors.Wrapf(ErrShape, "need 4 box channels and at least one class channel, got %d", channels)
	}

	data, single, err := Float64Data(raw)
	if err != nil {
		return nil, err
	}
	if len(data) != channels*boxes {
		return nil, errors.Wrapf(ErrShape, "shape %v holds %d elements, tensor has %d", shape, channels*boxes, len(data))
	}

	return &Candidates{
		data:     data,
		single:   single,
		channels: channels,
		boxes:    boxes,
		scores:   make([]float64, channels-boxColumns),
	}, nil
}

// Len returns the number of candidate boxes.
func (c *Candidates) Len() int {
	return c.boxes
}

// NumClasses returns K.
func (c *Candidates) NumClasses() int {
	return c.channels - boxColumns
}

// At returns column col of row i.
func (c *Candidates) At(i, col int) float64 {
	return c.data[col*c.boxes+i]
}

// Box returns the center-form geometry of row i.
func (c *Candidates) Box(i int) (cx, cy, w, h float32) {
	return float32(c.At(i, 0)), float32(c.At(i, 1)), float32(c.At(i, 2)), float32(c.At(i, 3))
}

// Best returns the class id and score of the highest class score of row i.
// Ties resolve to the lowest class id.
func (c *Candidates) Best(i int) (int, float64) {
	for k := range c.scores {
		c.scores[k] = c.At(i, boxColumns+k)
	}
	return Argmax(c.scores)
}

// Exceeds reports whether score is strictly greater than threshold.
//
// Float32 outputs are compared at float32, other dtypes at float64, so a
// score one ulp above the threshold in its own dtype always passes. NaN
// never passes.
func (c *Candidates) Exceeds(score, threshold float64) bool {
	if c.single {
		return float32(score) > float32(threshold)
	}
	return score > threshold
}
