package postprocess

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/images"
)

// Process decodes a raw YOLO-style output tensor into detections.
//
// For every candidate row the confidence is the maximum class score and the
// class id its first index. Rows whose confidence is strictly greater than
// cfg.ConfidenceThreshold, compared in the output's own precision, survive;
// the box, score and class of a survivor are
// recorded together. Boxes are converted from (cx, cy, w, h) to
// (x1, y1, x2, y2) and, when cfg.OriginalSize is set, stretched back to the
// original image with independent per-axis factors. Output order is the
// candidate order of the tensor unless cfg.NMS is set.
//
// Arguments:
//   - raw: The model output shaped [1, 4+K, N] or [4+K, N].
//   - cfg: The processing configuration.
//
// Returns:
//   - *Detections: The detections. Empty (not nil) slices when nothing
//     survives.
//   - error: ErrShape for malformed output, ErrInput for nil or non-numeric
//     output or an invalid cfg.
//
// Example:
//
// ```go
//
//	cfg := postprocess.DefaultConfig().WithOriginalSize(images.Size{Width: 1280, Height: 720})
//	dets, err := postprocess.Process(output, cfg)
//	if err != nil {
//	    return err
//	}
//	for i, box := range dets.Boxes {
//	    fmt.Println(box, dets.Scores[i], dets.ClassIDs[i])
//	}
//
// ```
func Process(raw tensor.Tensor, cfg Config) (*Detections, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	candidates, err := NewCandidates(raw)
	if err != nil {
		return nil, err
	}

	rescale := cfg.OriginalSize != nil
	var sx, sy float32 = 1, 1
	if rescale {
		sx, sy = images.ScaleFactors(cfg.InputSize, *cfg.OriginalSize)
	}

	dets := newDetections(0)
	for i := 0; i < candidates.Len(); i++ {
		class, score := candidates.Best(i)
		if !candidates.Exceeds(score, cfg.ConfidenceThreshold) {
			continue
		}

		box := images.FromCenter(candidates.Box(i))
		if rescale {
			box = box.Scale(sx, sy)
		}
		dets.add(box, float32(score), class)
	}

	if cfg.NMS != nil && dets.Len() > 1 {
		dets = FromResults(ApplyGreedyNMS(dets.Results(), cfg.NMS))
	}

	return dets, nil
}
