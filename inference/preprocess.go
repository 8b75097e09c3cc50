package inference

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/images"
)

// ColorMode defines the channel layout written into the tensor.
type ColorMode int

const (
	// ColorModeRGB writes R, G, B planes.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR writes B, G, R planes (OpenCV order).
	ColorModeBGR
	// ColorModeGrayscale writes a single luma plane.
	ColorModeGrayscale
)

// Channels returns the number of planes the mode writes.
func (m ColorMode) Channels() int {
	if m == ColorModeGrayscale {
		return 1
	}
	return 3
}

// PreprocessOptions configures Preprocess.
type PreprocessOptions struct {
	// Size is the model input size. The image is stretched to it.
	Size images.Size
	// ColorMode selects the channel layout.
	ColorMode ColorMode
	// Mean is subtracted after scaling to [0, 1]. One value applies to all
	// channels; otherwise one per channel. Empty means 0.
	Mean []float32
	// Std divides after subtracting Mean. Same broadcasting as Mean. Empty
	// means 1.
	Std []float32
}

// Preprocess prepares an image for a channel-first model.
//
// The image is resized to opts.Size (bilinear, no letterboxing), scaled to
// [0, 1], optionally standardized, laid out as CHW and given a leading batch
// axis of 1.
//
// Arguments:
//   - img: The image to prepare.
//   - opts: The preprocessing options.
//
// Returns:
//   - *tensor.Dense: A float32 tensor shaped [1, C, H, W].
//   - error: An error if the options are invalid.
func Preprocess(img image.Image, opts PreprocessOptions) (*tensor.Dense, error) {
	if !opts.Size.Valid() {
		return nil, fmt.Errorf("invalid input size %v", opts.Size)
	}
	channels := opts.ColorMode.Channels()
	mean, err := broadcast(opts.Mean, channels, 0)
	if err != nil {
		return nil, fmt.Errorf("mean: %w", err)
	}
	std, err := broadcast(opts.Std, channels, 1)
	if err != nil {
		return nil, fmt.Errorf("std: %w", err)
	}
	for c, s := range std {
		if s == 0 {
			return nil, fmt.Errorf("std of channel %d is zero", c)
		}
	}

	w, h := opts.Size.Width, opts.Size.Height
	if images.SizeOf(img) != opts.Size {
		img = resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	}
	bounds := img.Bounds()

	channelSize := w * h
	data := make([]float32, channels*channelSize)

	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch opts.ColorMode {
			case ColorModeGrayscale:
				g := color.GrayModel.Convert(px).(color.Gray)
				data[i] = (float32(g.Y)/255.0 - mean[0]) / std[0]
			default:
				r, g, b, _ := px.RGBA()
				planes := [3]float32{float32(r>>8) / 255.0, float32(g>>8) / 255.0, float32(b>>8) / 255.0}
				if opts.ColorMode == ColorModeBGR {
					planes[0], planes[2] = planes[2], planes[0]
				}
				for c := 0; c < 3; c++ {
					data[c*channelSize+i] = (planes[c] - mean[c]) / std[c]
				}
			}
			i++
		}
	}

	return tensor.New(tensor.WithShape(1, channels, h, w), tensor.WithBacking(data)), nil
}

func broadcast(values []float32, channels int, fill float32) ([]float32, error) {
	out := make([]float32, channels)
	switch len(values) {
	case 0:
		for c := range out {
			out[c] = fill
		}
	case 1:
		for c := range out {
			out[c] = values[0]
		}
	case channels:
		copy(out, values)
	default:
		return nil, fmt.Errorf("got %d values for %d channels", len(values), channels)
	}
	return out, nil
}
