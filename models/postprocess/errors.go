package postprocess

import "github.com/pkg/errors"

var (
	// ErrShape is returned when raw model output cannot be viewed as
	// [num_boxes, 4+num_classes].
	ErrShape = errors.New("malformed output shape")

	// ErrInput is returned for missing or non-numeric inputs and invalid
	// processing parameters.
	ErrInput = errors.New("invalid input")
)
