// Package config - Configuration record, defaults and loading for onnx-tester.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nvr-ai/onnx-tester/images"
	"github.com/nvr-ai/onnx-tester/inference"
	"github.com/nvr-ai/onnx-tester/logging"
	"github.com/nvr-ai/onnx-tester/models"
	"github.com/nvr-ai/onnx-tester/models/model"
	"github.com/nvr-ai/onnx-tester/models/postprocess"
	"github.com/nvr-ai/onnx-tester/util"
)

// EnvPrefix prefixes every environment override, e.g. ONNX_TESTER_DETECT_CONFIDENCE.
const EnvPrefix = "ONNX_TESTER"

// Config is the complete configuration of one invocation.
type Config struct {
	Detect   DetectConfig   `mapstructure:"detect"`
	Classify ClassifyConfig `mapstructure:"classify"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Log      logging.Config `mapstructure:"log"`
}

// DetectConfig configures the detection pipeline.
type DetectConfig struct {
	// Confidence is the score a candidate must strictly exceed.
	Confidence float64 `mapstructure:"confidence" validate:"gte=0,lte=1"`
	// InputWidth and InputHeight are the model input size.
	InputWidth  int `mapstructure:"input_width" validate:"gt=0"`
	InputHeight int `mapstructure:"input_height" validate:"gt=0"`
	// NMSIoU enables non-maximum suppression at that IoU. 0 disables it.
	NMSIoU float32 `mapstructure:"nms_iou" validate:"gte=0,lte=1"`
	// ClassAware only suppresses overlapping boxes of the same class.
	ClassAware bool `mapstructure:"class_aware"`
	// OutputName is the annotated image written next to the input.
	OutputName string `mapstructure:"output_name" validate:"required,excludesall=/\\"`
	// Labels names classes in annotations. Empty labels them by index.
	Labels string `mapstructure:"labels" validate:"omitempty,oneof=coco digits"`
	// Input and Output are the preferred tensor names.
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

// ClassifyConfig configures the digit classification pipeline.
type ClassifyConfig struct {
	InputSize int `mapstructure:"input_size" validate:"gt=0"`
	// Mean and Std standardize pixels after scaling to [0, 1].
	Mean   []float32 `mapstructure:"mean" validate:"max=1"`
	Std    []float32 `mapstructure:"std" validate:"max=1,dive,gt=0"`
	Input  string    `mapstructure:"input"`
	Output string    `mapstructure:"output"`
}

// RuntimeConfig configures ONNX Runtime.
type RuntimeConfig struct {
	// LibraryPath is the onnxruntime shared library. Empty resolves it from
	// the environment or third_party/.
	LibraryPath       string `mapstructure:"library_path"`
	IntraOpThreads    int    `mapstructure:"intra_op_threads" validate:"gte=0"`
	InterOpThreads    int    `mapstructure:"inter_op_threads" validate:"gte=0"`
	GraphOptimization string `mapstructure:"graph_optimization" validate:"oneof=disable basic extended all"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	yolo, _ := models.Lookup(model.ModelNameYOLO)
	digits, _ := models.Lookup(model.ModelNameMNIST)

	return Config{
		Detect: DetectConfig{
			Confidence:  postprocess.DefaultConfidenceThreshold,
			InputWidth:  yolo.InputSize.Width,
			InputHeight: yolo.InputSize.Height,
			OutputName:  util.DefaultOutputName,
			Input:       yolo.Input,
			Output:      yolo.Output,
		},
		Classify: ClassifyConfig{
			InputSize: digits.InputSize.Width,
			Input:     digits.Input,
			Output:    digits.Output,
		},
		Runtime: RuntimeConfig{
			GraphOptimization: string(inference.GraphOptimizationExtended),
		},
		Log: logging.DefaultConfig(),
	}
}

// SetDefaults registers every default with v so environment variables and
// flags can override any key.
func SetDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("detect.confidence", d.Detect.Confidence)
	v.SetDefault("detect.input_width", d.Detect.InputWidth)
	v.SetDefault("detect.input_height", d.Detect.InputHeight)
	v.SetDefault("detect.nms_iou", d.Detect.NMSIoU)
	v.SetDefault("detect.class_aware", d.Detect.ClassAware)
	v.SetDefault("detect.output_name", d.Detect.OutputName)
	v.SetDefault("detect.labels", d.Detect.Labels)
	v.SetDefault("detect.input", d.Detect.Input)
	v.SetDefault("detect.output", d.Detect.Output)

	v.SetDefault("classify.input_size", d.Classify.InputSize)
	v.SetDefault("classify.mean", d.Classify.Mean)
	v.SetDefault("classify.std", d.Classify.Std)
	v.SetDefault("classify.input", d.Classify.Input)
	v.SetDefault("classify.output", d.Classify.Output)

	v.SetDefault("runtime.library_path", d.Runtime.LibraryPath)
	v.SetDefault("runtime.intra_op_threads", d.Runtime.IntraOpThreads)
	v.SetDefault("runtime.inter_op_threads", d.Runtime.InterOpThreads)
	v.SetDefault("runtime.graph_optimization", d.Runtime.GraphOptimization)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.no_colors", d.Log.NoColors)
	v.SetDefault("log.report_caller", d.Log.ReportCaller)
}

// Load resolves the configuration from defaults, an optional YAML file,
// ONNX_TESTER_* environment variables and any flags already bound to v.
//
// Arguments:
//   - v: The viper instance. Flags should be bound before calling Load.
//   - path: An optional config file. Empty skips the file.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Postprocess returns the post-processor configuration of the detect section.
func (d DetectConfig) Postprocess() postprocess.Config {
	cfg := postprocess.Config{
		ConfidenceThreshold: d.Confidence,
		InputSize:           images.Size{Width: d.InputWidth, Height: d.InputHeight},
	}
	if d.NMSIoU > 0 {
		cfg.NMS = &postprocess.NMSConfig{IoUThreshold: d.NMSIoU, ClassAware: d.ClassAware}
	}
	return cfg
}

// ClassNames returns the configured label set, nil for index labels.
func (d DetectConfig) ClassNames() ([]string, error) {
	return models.Labels(models.LabelSet(d.Labels))
}

// Preprocess returns the pure-Go preprocessing options of the classify section.
func (c ClassifyConfig) Preprocess() inference.PreprocessOptions {
	return inference.PreprocessOptions{
		Size:      images.Size{Width: c.InputSize, Height: c.InputSize},
		ColorMode: inference.ColorModeGrayscale,
		Mean:      c.Mean,
		Std:       c.Std,
	}
}

// Session returns the session configuration for a model.
func (r RuntimeConfig) Session(modelPath, input, output string) inference.SessionConfig {
	return inference.SessionConfig{
		ModelPath:         modelPath,
		Input:             input,
		Output:            output,
		IntraOpThreads:    r.IntraOpThreads,
		InterOpThreads:    r.InterOpThreads,
		GraphOptimization: inference.GraphOptimization(r.GraphOptimization),
	}
}
