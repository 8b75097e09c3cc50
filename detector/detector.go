// Package detector - Single-image detection and classification pipelines.
package detector

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/onnx-tester/config"
	"github.com/nvr-ai/onnx-tester/cv"
	"github.com/nvr-ai/onnx-tester/images"
	"github.com/nvr-ai/onnx-tester/inference"
	"github.com/nvr-ai/onnx-tester/models/mnist"
	"github.com/nvr-ai/onnx-tester/models/postprocess"
	"github.com/nvr-ai/onnx-tester/profiler"
	"github.com/nvr-ai/onnx-tester/util"
)

// Pipeline stage names.
const (
	StageLoadModel   = "load_model"
	StageRead        = "read"
	StagePreprocess  = "preprocess"
	StageInference   = "inference"
	StagePostprocess = "postprocess"
	StageAnnotate    = "annotate"
	StageWrite       = "write"
)

// EvaluatorFactory opens a model.
type EvaluatorFactory func(cfg inference.SessionConfig) (inference.Evaluator, error)

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithTimer records stage timings into timer.
func WithTimer(timer *profiler.Timer) Option {
	return func(d *Detector) {
		d.timer = timer
	}
}

// WithEvaluatorFactory replaces the ONNX Runtime session factory.
func WithEvaluatorFactory(factory EvaluatorFactory) Option {
	return func(d *Detector) {
		d.newEvaluator = factory
	}
}

// Detector runs one image through one model.
type Detector struct {
	cfg          config.Config
	logger       logrus.FieldLogger
	timer        *profiler.Timer
	newEvaluator EvaluatorFactory
}

// New creates a Detector.
//
// Arguments:
//   - cfg: The validated configuration.
//   - opts: Optional logger, timer and evaluator factory.
//
// Returns:
//   - *Detector: The detector.
func New(cfg config.Config, opts ...Option) *Detector {
	d := &Detector{
		cfg:    cfg,
		logger: logrus.StandardLogger(),
		timer:  profiler.NewTimer(),
	}
	d.newEvaluator = d.openSession
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Timer returns the stage timer.
func (d *Detector) Timer() *profiler.Timer {
	return d.timer
}

func (d *Detector) openSession(cfg inference.SessionConfig) (inference.Evaluator, error) {
	if err := inference.InitializeEnvironment(d.cfg.Runtime.LibraryPath); err != nil {
		return nil, err
	}
	return inference.NewSession(cfg)
}

// stage runs fn under the timer.
func (d *Detector) stage(name string, fn func() error) error {
	done := d.timer.StartOperation(name)
	defer done()
	if err := fn(); err != nil {
		return errors.WithMessagef(err, "%s", name)
	}
	return nil
}

// Report is the outcome of Detect.
type Report struct {
	ImagePath    string                  `json:"image_path"`
	ModelPath    string                  `json:"model_path"`
	OutputPath   string                  `json:"output_path"`
	OriginalSize images.Size             `json:"original_size"`
	Detections   *postprocess.Detections `json:"detections"`
}

// Detect runs a detector on an image, draws the detections and writes the
// annotated copy next to the image.
//
// Arguments:
//   - ctx: Cancels the run before the forward pass.
//   - imagePath: The input image.
//   - modelPath: The exported .onnx detector.
//
// Returns:
//   - *Report: The detections and the path of the annotated image.
//   - error: util.ErrIO, postprocess.ErrShape, postprocess.ErrInput or an
//     evaluator error.
func (d *Detector) Detect(ctx context.Context, imagePath, modelPath string) (*Report, error) {
	if err := validateInputs(imagePath, modelPath); err != nil {
		return nil, err
	}
	names, err := d.cfg.Detect.ClassNames()
	if err != nil {
		return nil, err
	}
	ppCfg := d.cfg.Detect.Postprocess()

	log := d.logger.WithFields(logrus.Fields{"image": imagePath, "model": modelPath})

	var evaluator inference.Evaluator
	if err := d.stage(StageLoadModel, func() (err error) {
		evaluator, err = d.newEvaluator(d.cfg.Runtime.Session(modelPath, d.cfg.Detect.Input, d.cfg.Detect.Output))
		return err
	}); err != nil {
		return nil, err
	}
	defer evaluator.Close()

	var mat gocv.Mat
	report := &Report{ImagePath: imagePath, ModelPath: modelPath}
	if err := d.stage(StageRead, func() (err error) {
		mat, report.OriginalSize, err = cv.Read(imagePath)
		return err
	}); err != nil {
		mat.Close()
		return nil, err
	}
	defer mat.Close()

	var blob *tensor.Dense
	if err := d.stage(StagePreprocess, func() (err error) {
		blob, err = cv.Blob(mat, ppCfg.InputSize)
		return err
	}); err != nil {
		return nil, err
	}

	var raw tensor.Tensor
	if err := d.stage(StageInference, func() (err error) {
		raw, err = evaluator.Run(ctx, blob)
		return err
	}); err != nil {
		return nil, err
	}
	if raw != nil {
		log.WithField("shape", raw.Shape().String()).Debug("model output")
	}

	if err := d.stage(StagePostprocess, func() (err error) {
		report.Detections, err = postprocess.Process(raw, ppCfg.WithOriginalSize(report.OriginalSize))
		return err
	}); err != nil {
		return nil, err
	}

	done := d.timer.StartOperation(StageAnnotate)
	cv.Annotate(&mat, report.Detections.Results(), names)
	done()

	report.OutputPath = util.OutputPath(imagePath, d.cfg.Detect.OutputName)
	if err := d.stage(StageWrite, func() error {
		return cv.Write(report.OutputPath, mat)
	}); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"detections": report.Detections.Len(),
		"output":     report.OutputPath,
	}).Info("detection complete")
	d.timer.Log(log)

	return report, nil
}

// Classify runs a digit classifier on an image.
//
// Arguments:
//   - ctx: Cancels the run before the forward pass.
//   - imagePath: The input image. Colour images are converted to grayscale.
//   - modelPath: The exported .onnx classifier.
//
// Returns:
//   - *mnist.Prediction: The prediction for the image.
//   - error: util.ErrIO, postprocess.ErrShape, postprocess.ErrInput or an
//     evaluator error.
func (d *Detector) Classify(ctx context.Context, imagePath, modelPath string) (*mnist.Prediction, error) {
	if err := validateInputs(imagePath, modelPath); err != nil {
		return nil, err
	}

	log := d.logger.WithFields(logrus.Fields{"image": imagePath, "model": modelPath})

	var evaluator inference.Evaluator
	if err := d.stage(StageLoadModel, func() (err error) {
		evaluator, err = d.newEvaluator(d.cfg.Runtime.Session(modelPath, d.cfg.Classify.Input, d.cfg.Classify.Output))
		return err
	}); err != nil {
		return nil, err
	}
	defer evaluator.Close()

	var input *tensor.Dense
	if err := d.stage(StagePreprocess, func() error {
		img, err := images.Load(imagePath)
		if err != nil {
			return err
		}
		input, err = inference.Preprocess(img, d.cfg.Classify.Preprocess())
		return err
	}); err != nil {
		return nil, err
	}

	var logits tensor.Tensor
	if err := d.stage(StageInference, func() (err error) {
		logits, err = evaluator.Run(ctx, input)
		return err
	}); err != nil {
		return nil, err
	}

	var predictions []mnist.Prediction
	if err := d.stage(StagePostprocess, func() (err error) {
		predictions, err = mnist.Classify(logits)
		return err
	}); err != nil {
		return nil, err
	}
	if len(predictions) != 1 {
		return nil, errors.Wrapf(postprocess.ErrShape, "expected one prediction, got %d", len(predictions))
	}

	log.WithFields(logrus.Fields{
		"digit":      predictions[0].Digit,
		"confidence": predictions[0].Confidence,
	}).Info("classification complete")
	d.timer.Log(log)

	return &predictions[0], nil
}

func validateInputs(imagePath, modelPath string) error {
	if err := util.ValidateFile(imagePath, util.ImageExtensions); err != nil {
		return errors.Wrap(err, "invalid image")
	}
	if err := util.ValidateFile(modelPath, util.ModelExtensions); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	return nil
}
