package postprocess

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/onnx-tester/images"
)

const (
	// DefaultConfidenceThreshold is the score a candidate must exceed.
	DefaultConfidenceThreshold float64 = 0.25
	// DefaultInputSize is the side of the square model input.
	DefaultInputSize = 640
)

// Config holds the parameters of Process.
type Config struct {
	// ConfidenceThreshold in [0, 1]. A candidate is kept only when its best
	// class score is strictly greater.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// InputSize is the size the model was fed.
	InputSize images.Size `json:"input_size" yaml:"input_size"`
	// OriginalSize is the size of the source image before resizing. When nil
	// the boxes stay in model input space.
	OriginalSize *images.Size `json:"original_size,omitempty" yaml:"original_size,omitempty"`
	// NMS enables greedy non-maximum suppression after rescaling. Nil keeps
	// every surviving candidate in output order.
	NMS *NMSConfig `json:"nms,omitempty" yaml:"nms,omitempty"`
}

// DefaultConfig returns a 0.25 threshold on a 640x640 input, no rescale and
// no suppression.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		InputSize:           images.Size{Width: DefaultInputSize, Height: DefaultInputSize},
	}
}

// WithOriginalSize returns a copy of c that rescales to size.
func (c Config) WithOriginalSize(size images.Size) Config {
	c.OriginalSize = &size
	return c
}

// Validate checks the threshold and sizes.
//
// Returns:
//   - error: ErrInput wrapped with the offending field, or nil.
func (c Config) Validate() error {
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Wrapf(ErrInput, "confidence threshold %v outside [0, 1]", c.ConfidenceThreshold)
	}
	if !c.InputSize.Valid() {
		return errors.Wrapf(ErrInput, "model input size %v must be positive", c.InputSize)
	}
	if c.OriginalSize != nil && !c.OriginalSize.Valid() {
		return errors.Wrapf(ErrInput, "original image size %v must be positive", *c.OriginalSize)
	}
	if c.NMS != nil {
		if math32.IsNaN(c.NMS.IoUThreshold) || c.NMS.IoUThreshold < 0 || c.NMS.IoUThreshold > 1 {
			return errors.Wrapf(ErrInput, "NMS IoU threshold %v outside [0, 1]", c.NMS.IoUThreshold)
		}
	}
	return nil
}
