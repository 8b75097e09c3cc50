// Package inference - Inference sessions.
package inference

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/util"
)

// GraphOptimization names an ORT graph optimization level.
type GraphOptimization string

// GraphOptimization constants.
const (
	GraphOptimizationDisable  GraphOptimization = "disable"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

func (g GraphOptimization) level() (ort.GraphOptimizationLevel, error) {
	switch g {
	case GraphOptimizationDisable:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case GraphOptimizationExtended, "":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unknown graph optimization level %q", g)
	}
}

// SessionConfig configures a CPU ONNX Runtime session.
type SessionConfig struct {
	// ModelPath is the .onnx file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// Input is the preferred input name. When the model has no input by that
	// name its first input is used.
	Input string `json:"input" yaml:"input"`
	// Output is the preferred output name. When the model has no output by
	// that name its first output is used.
	Output string `json:"output" yaml:"output"`
	// IntraOpThreads parallelizes execution within graph nodes. 0 uses the
	// ORT default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes execution across graph nodes. 0 uses the
	// ORT default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// GraphOptimization is the level applied when loading the graph.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization"`
}

// Session represents a model session from the onnxruntime.
type Session struct {
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
}

// NewSession loads a model into a CPU session.
//
// The environment must already be initialized with InitializeEnvironment.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *Session: The session.
//   - error: util.ErrIO if the model file is missing, otherwise the ORT error.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := util.ValidateFile(cfg.ModelPath, util.ModelExtensions); err != nil {
		return nil, errors.Wrap(err, "invalid model path")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(util.ErrIO, "reading model %s: %v", cfg.ModelPath, err)
	}
	input, err := pickTensor(inputs, cfg.Input)
	if err != nil {
		return nil, errors.Wrap(err, "model inputs")
	}
	output, err := pickTensor(outputs, cfg.Output)
	if err != nil {
		return nil, errors.Wrap(err, "model outputs")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return nil, errors.Wrap(err, "error setting inter-op threads")
		}
	}
	level, err := cfg.GraphOptimization.level()
	if err != nil {
		return nil, err
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{input.Name},
		[]string{output.Name},
		options,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// pickTensor returns the tensor named preferred, or the first one.
func pickTensor(infos []ort.InputOutputInfo, preferred string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, errors.New("model declares no tensors")
	}
	for _, info := range infos {
		if info.Name == preferred {
			return info, nil
		}
	}
	return infos[0], nil
}

// InputName returns the name of the bound input.
func (s *Session) InputName() string {
	return s.input.Name
}

// OutputName returns the name of the bound output.
func (s *Session) OutputName() string {
	return s.output.Name
}

// Run executes the model on a float32 input and returns a copy of its output.
//
// Arguments:
//   - ctx: Checked before the forward pass starts.
//   - input: The input tensor, typically [1, C, H, W].
//
// Returns:
//   - tensor.Tensor: The output with the shape the model reported.
//   - error: The context error, or an error from ORT.
func (s *Session) Run(ctx context.Context, input *tensor.Dense) (tensor.Tensor, error) {
	if s.session == nil {
		return nil, errors.New("session closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("input must be float32, got %v", input.Dtype())
	}
	dims := input.Shape()
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}

	in, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}
	defer outputs[0].Destroy()

	switch out := outputs[0].(type) {
	case *ort.Tensor[float32]:
		return toDense(out.GetShape(), append([]float32(nil), out.GetData()...)), nil
	case *ort.Tensor[float64]:
		return toDense(out.GetShape(), append([]float64(nil), out.GetData()...)), nil
	default:
		return nil, fmt.Errorf("unsupported output type %T for %s", outputs[0], s.output.Name)
	}
}

func toDense(shape ort.Shape, backing interface{}) *tensor.Dense {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(backing))
}

// Close releases the session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

var _ Evaluator = (*Session)(nil)
