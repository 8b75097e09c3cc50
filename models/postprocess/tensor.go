package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Float32Data returns the elements of t in row-major order as float32.
//
// Views are materialized first. Every real numeric dtype is accepted; bools,
// strings, complex numbers and pointers are rejected.
//
// Arguments:
//   - t: The tensor to read.
//
// Returns:
//   - []float32: The elements. Shares the backing array when t is float32.
//   - error: ErrInput if t is nil or not numeric.
func Float32Data(t tensor.Tensor) ([]float32, error) {
	data, err := rawData(t)
	if err != nil {
		return nil, err
	}
	if v, ok := data.([]float32); ok {
		return v, nil
	}
	return convertAny[float32](data), nil
}

// Float64Data returns the elements of t in row-major order as float64.
//
// Float32 elements widen exactly, so callers can still compare them at
// float32 precision.
//
// Arguments:
//   - t: The tensor to read.
//
// Returns:
//   - []float64: The elements. Shares the backing array when t is float64.
//   - bool: Whether t holds float32 elements.
//   - error: ErrInput if t is nil or not numeric.
func Float64Data(t tensor.Tensor) ([]float64, bool, error) {
	data, err := rawData(t)
	if err != nil {
		return nil, false, err
	}
	if v, ok := data.([]float64); ok {
		return v, false, nil
	}
	_, single := data.([]float32)
	return convertAny[float64](data), single, nil
}

// rawData returns the backing slice of t once it is known to be numeric.
func rawData(t tensor.Tensor) (interface{}, error) {
	if t == nil {
		return nil, errors.Wrap(ErrInput, "tensor is nil")
	}
	if v, ok := t.(tensor.View); ok && v.IsMaterializable() {
		t = v.Materialize()
	}

	switch data := t.Data().(type) {
	case []float32, []float64,
		[]int, []int8, []int16, []int32, []int64,
		[]uint, []uint8, []uint16, []uint32, []uint64:
		return data, nil
	default:
		return nil, errors.Wrapf(ErrInput, "non-numeric tensor dtype %v", t.Dtype())
	}
}

type number interface {
	~float32 | ~float64 | ~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type float interface {
	~float32 | ~float64
}

// convertAny converts a slice already accepted by rawData.
func convertAny[U float](data interface{}) []U {
	switch v := data.(type) {
	case []float32:
		return convert[float32, U](v)
	case []float64:
		return convert[float64, U](v)
	case []int:
		return convert[int, U](v)
	case []int8:
		return convert[int8, U](v)
	case []int16:
		return convert[int16, U](v)
	case []int32:
		return convert[int32, U](v)
	case []int64:
		return convert[int64, U](v)
	case []uint:
		return convert[uint, U](v)
	case []uint8:
		return convert[uint8, U](v)
	case []uint16:
		return convert[uint16, U](v)
	case []uint32:
		return convert[uint32, U](v)
	case []uint64:
		return convert[uint64, U](v)
	default:
		return nil
	}
}

func convert[T number, U float](in []T) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = U(v)
	}
	return out
}

// Argmax returns the index and value of the largest element.
//
// Ties resolve to the lowest index. A NaN anywhere wins, as the first NaN,
// so that a NaN score never passes a threshold comparison.
//
// Arguments:
//   - v: The values. Must not be empty.
//
// Returns:
//   - int: The index of the maximum.
//   - T: The maximum.
func Argmax[T float](v []T) (int, T) {
	best, bestIdx := v[0], 0
	if best != best {
		return 0, best
	}
	for i := 1; i < len(v); i++ {
		s := v[i]
		if s != s {
			return i, s
		}
		if s > best {
			best, bestIdx = s, i
		}
	}
	return bestIdx, best
}
