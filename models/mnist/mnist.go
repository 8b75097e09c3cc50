// Package mnist - Decoding for exported handwritten-digit classifiers.
//
// The classifier takes a [N, 1, 28, 28] float32 batch named "input" and
// returns raw logits [N, 10] named "output".
package mnist

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/models/postprocess"
)

const (
	// InputName is the name of the model input.
	InputName = "input"
	// OutputName is the name of the model output.
	OutputName = "output"
	// ImageSize is the side of the square grayscale input.
	ImageSize = 28
	// Channels is the number of input channels.
	Channels = 1
	// NumClasses is the number of digits.
	NumClasses = 10
)

// Prediction is the decoded output for one image.
type Prediction struct {
	// Digit is the index of the largest logit. Ties resolve to the lowest index.
	Digit int `json:"digit"`
	// Confidence is the softmax probability of Digit.
	Confidence float32 `json:"confidence"`
	// Probabilities is the softmax over all classes.
	Probabilities []float32 `json:"probabilities"`
	// Logits are the raw model outputs for this image.
	Logits []float32 `json:"logits"`
}

// Classify decodes a batch of logits.
//
// Arguments:
//   - logits: Shaped [N, K] or [K], K >= 1.
//
// Returns:
//   - []Prediction: One prediction per row.
//   - error: postprocess.ErrShape or postprocess.ErrInput.
func Classify(logits tensor.Tensor) ([]Prediction, error) {
	if logits == nil {
		return nil, errors.Wrap(postprocess.ErrInput, "logits are nil")
	}

	shape := logits.Shape()
	var rows, classes int
	switch len(shape) {
	case 1:
		rows, classes = 1, shape[0]
	case 2:
		rows, classes = shape[0], shape[1]
	default:
		return nil, errors.Wrapf(postprocess.ErrShape, "expected [N, K] logits, got shape %v", shape)
	}
	if classes < 1 {
		return nil, errors.Wrapf(postprocess.ErrShape, "logits have no classes: %v", shape)
	}

	data, err := postprocess.Float32Data(logits)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*classes {
		return nil, errors.Wrapf(postprocess.ErrShape, "shape %v holds %d elements, tensor has %d", shape, rows*classes, len(data))
	}

	predictions := make([]Prediction, rows)
	for i := range predictions {
		row := append([]float32(nil), data[i*classes:(i+1)*classes]...)
		digit, _ := postprocess.Argmax(row)
		probs := Softmax(row)
		predictions[i] = Prediction{
			Digit:         digit,
			Confidence:    probs[digit],
			Probabilities: probs,
			Logits:        row,
		}
	}

	return predictions, nil
}

// Softmax returns exp(v) / sum(exp(v)), shifted by max(v) for stability.
func Softmax(v []float32) []float32 {
	out := make([]float32, len(v))
	if len(v) == 0 {
		return out
	}

	maxV := v[0]
	for _, x := range v[1:] {
		maxV = math32.Max(maxV, x)
	}

	var sum float32
	for i, x := range v {
		out[i] = math32.Exp(x - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
