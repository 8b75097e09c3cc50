package postprocess

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/images"
)

// rawOutput lays rows of [cx, cy, w, h, s_0 … s_{K-1}] out channel-major as
// a [1, 4+K, N] tensor, the way a YOLO export emits them.
func rawOutput(t *testing.T, rows ...[]float32) *tensor.Dense {
	t.Helper()
	require.NotEmpty(t, rows)

	channels := len(rows[0])
	data := make([]float32, channels*len(rows))
	for i, row := range rows {
		require.Len(t, row, channels, "row %d", i)
		for c, v := range row {
			data[c*len(rows)+i] = v
		}
	}

	return tensor.New(tensor.WithShape(1, channels, len(rows)), tensor.WithBacking(data))
}

func assertParallel(t *testing.T, dets *Detections) {
	t.Helper()
	require.NotNil(t, dets)
	assert.Equal(t, len(dets.Boxes), len(dets.Scores))
	assert.Equal(t, len(dets.Scores), len(dets.ClassIDs))
}

func TestProcess_CornerConversion(t *testing.T) {
	raw := rawOutput(t, []float32{10, 10, 4, 2, 0.9})

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)
	assertParallel(t, dets)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, images.Rect{X1: 8, Y1: 9, X2: 12, Y2: 11}, dets.Boxes[0])
	assert.Equal(t, float32(0.9), dets.Scores[0])
	assert.Equal(t, 0, dets.ClassIDs[0])
}

func TestProcess_Rescale(t *testing.T) {
	// Box (100, 100, 200, 200) in 640x640 model space.
	raw := rawOutput(t, []float32{150, 150, 100, 100, 0.8})

	cfg := DefaultConfig().WithOriginalSize(images.Size{Width: 640, Height: 320})
	dets, err := Process(raw, cfg)
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, images.Rect{X1: 100, Y1: 50, X2: 200, Y2: 100}, dets.Boxes[0])
}

func TestProcess_RescaleIsAnisotropic(t *testing.T) {
	raw := rawOutput(t, []float32{320, 320, 640, 640, 0.8})

	cfg := DefaultConfig().WithOriginalSize(images.Size{Width: 1920, Height: 1080})
	dets, err := Process(raw, cfg)
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 1920, Y2: 1080}, dets.Boxes[0])
}

func TestProcess_NoOriginalSizeKeepsModelSpace(t *testing.T) {
	raw := rawOutput(t, []float32{150, 150, 100, 100, 0.8})

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, images.Rect{X1: 100, Y1: 100, X2: 200, Y2: 200}, dets.Boxes[0])
}

func TestProcess_ThresholdBoundary(t *testing.T) {
	const threshold = float32(0.25)

	tests := []struct {
		name  string
		score float32
		kept  bool
	}{
		{name: "exactly threshold is dropped", score: threshold, kept: false},
		{name: "threshold plus epsilon is kept", score: math32.Nextafter(threshold, 1), kept: true},
		{name: "below threshold is dropped", score: 0.1, kept: false},
		{name: "well above threshold is kept", score: 0.99, kept: true},
		{name: "NaN is dropped", score: math32.NaN(), kept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawOutput(t, []float32{50, 50, 10, 10, tt.score})

			cfg := DefaultConfig()
			cfg.ConfidenceThreshold = float64(threshold)
			dets, err := Process(raw, cfg)
			require.NoError(t, err)
			assertParallel(t, dets)

			if tt.kept {
				assert.Equal(t, 1, dets.Len())
			} else {
				assert.Equal(t, 0, dets.Len())
			}
		})
	}
}

func TestProcess_ThresholdBoundaryFloat64(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold float64
		kept      bool
	}{
		{name: "exactly threshold is dropped", score: 0.3, threshold: 0.3, kept: false},
		{name: "threshold plus 1e-9 is kept", score: 0.3 + 1e-9, threshold: 0.3, kept: true},
		{name: "default threshold plus 1e-12 is kept", score: 0.25 + 1e-12, threshold: DefaultConfidenceThreshold, kept: true},
		{name: "threshold plus one ulp is kept", score: math.Nextafter(0.3, 1), threshold: 0.3, kept: true},
		{name: "threshold minus one ulp is dropped", score: math.Nextafter(0.3, 0), threshold: 0.3, kept: false},
		{name: "NaN is dropped", score: math.NaN(), threshold: 0.3, kept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One candidate, so channel-major and row-major coincide.
			raw := tensor.New(tensor.WithShape(1, 5, 1), tensor.WithBacking([]float64{50, 50, 10, 10, tt.score}))

			cfg := DefaultConfig()
			cfg.ConfidenceThreshold = tt.threshold
			dets, err := Process(raw, cfg)
			require.NoError(t, err)
			assertParallel(t, dets)

			if tt.kept {
				require.Equal(t, 1, dets.Len())
				assert.Equal(t, float32(tt.score), dets.Scores[0])
			} else {
				assert.Equal(t, 0, dets.Len())
			}
		})
	}
}

func TestProcess_Float32ComparedAtFloat32(t *testing.T) {
	// float32(0.3) is 0.30000001192..., above the float64 threshold 0.3 but
	// equal to it at float32, the precision the model emitted.
	raw := rawOutput(t, []float32{50, 50, 10, 10, 0.3})

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.3
	dets, err := Process(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, dets.Len())
}

func TestProcess_ZeroThresholdDropsZeroScores(t *testing.T) {
	raw := rawOutput(t,
		[]float32{50, 50, 10, 10, 0},
		[]float32{60, 60, 10, 10, 0.001},
	)

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0
	dets, err := Process(raw, cfg)
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, float32(0.001), dets.Scores[0])
}

func TestProcess_ArgmaxTieBreak(t *testing.T) {
	raw := rawOutput(t, []float32{50, 50, 10, 10, 0.5, 0.5, 0.2})

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, 0, dets.ClassIDs[0])
	assert.Equal(t, float32(0.5), dets.Scores[0])
}

func TestProcess_ArgmaxPicksBestClass(t *testing.T) {
	raw := rawOutput(t,
		[]float32{50, 50, 10, 10, 0.1, 0.3, 0.7, 0.7},
		[]float32{80, 80, 10, 10, 0.9, 0.3, 0.2, 0.1},
	)

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 2, dets.Len())
	assert.Equal(t, []int{2, 0}, dets.ClassIDs)
	assert.Equal(t, []float32{0.7, 0.9}, dets.Scores)
}

func TestProcess_EmptyWhenNothingSurvives(t *testing.T) {
	raw := rawOutput(t,
		[]float32{50, 50, 10, 10, 0.25},
		[]float32{60, 60, 10, 10, 0.1},
		[]float32{70, 70, 10, 10, 0},
	)

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)
	assertParallel(t, dets)

	assert.Equal(t, 0, dets.Len())
	assert.NotNil(t, dets.Boxes)
	assert.NotNil(t, dets.Scores)
	assert.NotNil(t, dets.ClassIDs)
	assert.Empty(t, dets.Results())
}

func TestProcess_EndToEnd(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]float32
		expected []Result
	}{
		{
			name: "one class, one of two candidates survives",
			rows: [][]float32{
				{320, 160, 64, 32, 0.10},
				{100, 200, 20, 40, 0.75},
			},
			expected: []Result{
				{Box: images.Rect{X1: 90, Y1: 90, X2: 110, Y2: 110}, Score: 0.75, Class: 0},
			},
		},
		{
			name: "two classes, one of two candidates survives",
			rows: [][]float32{
				{100, 200, 20, 40, 0.05, 0.60},
				{320, 160, 64, 32, 0.20, 0.10},
			},
			expected: []Result{
				{Box: images.Rect{X1: 90, Y1: 90, X2: 110, Y2: 110}, Score: 0.60, Class: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawOutput(t, tt.rows...)
			require.Equal(t, tensor.Shape{1, len(tt.rows[0]), 2}, raw.Shape())

			// Original image is 640 wide and 320 high: y halves.
			cfg := DefaultConfig().WithOriginalSize(images.Size{Width: 640, Height: 320})
			dets, err := Process(raw, cfg)
			require.NoError(t, err)
			assertParallel(t, dets)

			assert.Equal(t, tt.expected, dets.Results())
		})
	}
}

func TestProcess_PreservesCandidateOrder(t *testing.T) {
	raw := rawOutput(t,
		[]float32{10, 10, 2, 2, 0.4},
		[]float32{20, 20, 2, 2, 0.9},
		[]float32{30, 30, 2, 2, 0.1},
		[]float32{40, 40, 2, 2, 0.6},
	)

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []float32{0.4, 0.9, 0.6}, dets.Scores)
	assert.Equal(t, float32(9), dets.Boxes[0].X1)
	assert.Equal(t, float32(19), dets.Boxes[1].X1)
	assert.Equal(t, float32(39), dets.Boxes[2].X1)
}

func TestProcess_BatchlessLayout(t *testing.T) {
	// [4+K, N] with K=1, N=2.
	raw := tensor.New(tensor.WithShape(5, 2), tensor.WithBacking([]float32{
		10, 20, // cx
		10, 20, // cy
		4, 4, // w
		2, 2, // h
		0.9, 0.1, // score
	}))

	dets, err := Process(raw, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 1, dets.Len())
	assert.Equal(t, images.Rect{X1: 8, Y1: 9, X2: 12, Y2: 11}, dets.Boxes[0])
}

func TestProcess_NumericDtypes(t *testing.T) {
	tests := []struct {
		name    string
		backing interface{}
	}{
		{name: "float64", backing: []float64{10, 10, 4, 2, 0.9}},
		{name: "int64", backing: []int64{10, 10, 4, 2, 1}},
		{name: "uint8", backing: []uint8{10, 10, 4, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tensor.New(tensor.WithShape(1, 5, 1), tensor.WithBacking(tt.backing))

			dets, err := Process(raw, DefaultConfig())
			require.NoError(t, err)

			require.Equal(t, 1, dets.Len())
			assert.Equal(t, images.Rect{X1: 8, Y1: 9, X2: 12, Y2: 11}, dets.Boxes[0])
		})
	}
}

func TestProcess_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  tensor.Tensor
	}{
		{
			name: "rank 1",
			raw:  tensor.New(tensor.WithShape(5), tensor.WithBacking([]float32{1, 2, 3, 4, 5})),
		},
		{
			name: "rank 4",
			raw:  tensor.New(tensor.WithShape(1, 1, 5, 1), tensor.WithBacking([]float32{1, 2, 3, 4, 5})),
		},
		{
			name: "batch of two",
			raw:  tensor.New(tensor.WithShape(2, 5, 1), tensor.WithBacking(make([]float32, 10))),
		},
		{
			name: "no class channel",
			raw:  tensor.New(tensor.WithShape(1, 4, 2), tensor.WithBacking(make([]float32, 8))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets, err := Process(tt.raw, DefaultConfig())
			assert.Nil(t, dets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShape), "expected ErrShape, got %v", err)
		})
	}
}

func TestProcess_InputErrors(t *testing.T) {
	valid := tensor.New(tensor.WithShape(1, 5, 1), tensor.WithBacking([]float32{10, 10, 4, 2, 0.9}))

	tests := []struct {
		name string
		raw  tensor.Tensor
		cfg  func(*Config)
	}{
		{name: "nil tensor", raw: nil},
		{
			name: "bool tensor",
			raw:  tensor.New(tensor.WithShape(1, 5, 1), tensor.WithBacking([]bool{true, true, true, true, true})),
		},
		{
			name: "string tensor",
			raw:  tensor.New(tensor.WithShape(1, 5, 1), tensor.WithBacking([]string{"a", "b", "c", "d", "e"})),
		},
		{name: "threshold above one", raw: valid, cfg: func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{name: "negative threshold", raw: valid, cfg: func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{name: "NaN threshold", raw: valid, cfg: func(c *Config) { c.ConfidenceThreshold = math.NaN() }},
		{name: "zero input size", raw: valid, cfg: func(c *Config) { c.InputSize = images.Size{} }},
		{
			name: "zero original size",
			raw:  valid,
			cfg:  func(c *Config) { *c = c.WithOriginalSize(images.Size{Width: 0, Height: 10}) },
		},
		{name: "NMS threshold", raw: valid, cfg: func(c *Config) { c.NMS = &NMSConfig{IoUThreshold: 2} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}

			dets, err := Process(tt.raw, cfg)
			assert.Nil(t, dets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput), "expected ErrInput, got %v", err)
		})
	}
}

func TestProcess_WithNMS(t *testing.T) {
	raw := rawOutput(t,
		[]float32{50, 50, 20, 20, 0.6, 0.0},
		[]float32{51, 51, 20, 20, 0.9, 0.0},
		[]float32{200, 200, 20, 20, 0.0, 0.7},
	)

	cfg := DefaultConfig()
	cfg.NMS = &NMSConfig{IoUThreshold: 0.5}
	dets, err := Process(raw, cfg)
	require.NoError(t, err)
	assertParallel(t, dets)

	assert.Equal(t, []float32{0.9, 0.7}, dets.Scores)
	assert.Equal(t, []int{0, 1}, dets.ClassIDs)
}

func TestResult_Label(t *testing.T) {
	r := Result{Class: 3, Score: 0.8765}

	assert.Equal(t, "Class 3: 0.88", r.Label(nil))
	assert.Equal(t, "cat: 0.88", r.Label([]string{"a", "b", "c", "cat"}))
	assert.Equal(t, "Class 3: 0.88", r.Label([]string{"a"}))
}

func TestArgmax(t *testing.T) {
	idx, v := Argmax([]float32{0.5, 0.5, 0.2})
	assert.Equal(t, 0, idx)
	assert.Equal(t, float32(0.5), v)

	idx, v = Argmax([]float32{-3, -1, -2})
	assert.Equal(t, 1, idx)
	assert.Equal(t, float32(-1), v)

	idx, v = Argmax([]float32{0.1, math32.NaN(), 0.9})
	assert.Equal(t, 1, idx)
	assert.True(t, math32.IsNaN(v))
}

func TestArgmaxFloat64(t *testing.T) {
	idx, v := Argmax([]float64{0.2, 0.7, 0.7})
	assert.Equal(t, 1, idx)
	assert.Equal(t, 0.7, v)
}
