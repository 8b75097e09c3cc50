package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nvr-ai/onnx-tester/config"
	"github.com/nvr-ai/onnx-tester/detector"
	"github.com/nvr-ai/onnx-tester/inference"
	"github.com/nvr-ai/onnx-tester/logging"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *logrus.Entry
}

// loggedError marks an error that has already been reported to the user.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string { return e.err.Error() }

func (e *loggedError) Unwrap() error { return e.err }

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"confidence":   "detect.confidence",
	"input-width":  "detect.input_width",
	"input-height": "detect.input_height",
	"nms-iou":      "detect.nms_iou",
	"class-aware":  "detect.class_aware",
	"output-name":  "detect.output_name",
	"labels":       "detect.labels",
	"ort-lib":      "runtime.library_path",
	"threads":      "runtime.intra_op_threads",
	"log-level":    "log.level",
	"log-file":     "log.file",
}

func newRootCommand(out io.Writer) *cobra.Command {
	v := viper.New()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "onnx-tester <image_path> <model_path>",
		Short: "Run an ONNX object detector on an image and save the annotated result",
		Long: "Runs a YOLO-style ONNX export on one image, keeps candidates whose best class\n" +
			"score exceeds the confidence threshold, draws them and writes output.jpg next\n" +
			"to the input image.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(v, configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.report(runDetect(cmd.Context(), a, out, args[0], args[1]))
		},
	}

	setupFlags(rootCmd.PersistentFlags(), &configPath)
	if err := bindFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(newClassifyCommand(v, &configPath, out))

	return rootCmd
}

// setupFlags defines the flags shared by every command. Their defaults live in
// config.Defaults so a flag only overrides when given.
func setupFlags(flags *pflag.FlagSet, configPath *string) {
	d := config.Defaults()

	flags.StringVar(configPath, "config", "", "Path to a YAML config file")
	flags.Float64("confidence", d.Detect.Confidence, "Keep candidates whose best class score is strictly greater than this")
	flags.Int("input-width", d.Detect.InputWidth, "Model input width")
	flags.Int("input-height", d.Detect.InputHeight, "Model input height")
	flags.Float32("nms-iou", d.Detect.NMSIoU, "Suppress overlapping boxes above this IoU (0 disables)")
	flags.Bool("class-aware", d.Detect.ClassAware, "Only suppress overlapping boxes of the same class")
	flags.String("output-name", d.Detect.OutputName, "File name of the annotated image")
	flags.String("labels", d.Detect.Labels, "Class names for labels: coco, digits or empty for indices")
	flags.String("ort-lib", d.Runtime.LibraryPath, "Path to the onnxruntime shared library")
	flags.Int("threads", d.Runtime.IntraOpThreads, "Intra-op threads (0 uses the runtime default)")
	flags.String("log-level", d.Log.Level, "Log level")
	flags.String("log-file", d.Log.File, "Also write logs to this rotating file")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// setup loads the configuration and builds the logger for one run. Errors
// are written to errOut since no logger exists yet.
func setup(v *viper.Viper, configPath string, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return nil, &loggedError{err}
	}

	logger, err := logging.NewWithWriter(cfg.Log, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return nil, &loggedError{err}
	}

	return &app{
		cfg: cfg,
		log: logger.WithField("run_id", uuid.NewString()),
	}, nil
}

// report logs a failed run and releases the ONNX Runtime environment.
func (a *app) report(err error) error {
	if destroyErr := inference.DestroyEnvironment(); destroyErr != nil {
		a.log.WithError(destroyErr).Warn("error destroying ORT environment")
	}
	if err != nil {
		a.log.WithError(err).Error("run failed")
		return &loggedError{err}
	}
	return nil
}

func (a *app) detector() *detector.Detector {
	return detector.New(*a.cfg, detector.WithLogger(a.log))
}

func runDetect(ctx context.Context, a *app, out io.Writer, imagePath, modelPath string) error {
	report, err := a.detector().Detect(ctx, imagePath, modelPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Output saved to %s\n", report.OutputPath)
	return nil
}
