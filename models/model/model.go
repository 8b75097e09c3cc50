// Package model - Definitions of the model kinds the tool can run.
package model

import "github.com/nvr-ai/onnx-tester/images"

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the YOLO detector family: [1, 3, H, W] in,
	// [1, 4+K, N] out.
	ModelFamilyYOLO Family = "yolo"
	// ModelFamilyMNIST is the handwritten-digit classifier family:
	// [N, 1, 28, 28] in, [N, 10] out.
	ModelFamilyMNIST Family = "mnist"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLO is an Ultralytics-style YOLO detector export.
	ModelNameYOLO Name = "yolo"
	// ModelNameMNIST is the exported digit classifier.
	ModelNameMNIST Name = "mnist"
)

// Spec describes the input/output contract of a model.
type Spec struct {
	Name   Name   `json:"name" yaml:"name"`
	Family Family `json:"family" yaml:"family"`
	// InputSize is the spatial size the model is fed.
	InputSize images.Size `json:"input_size" yaml:"input_size"`
	// Channels is the number of input channels.
	Channels int `json:"channels" yaml:"channels"`
	// Input is the preferred input tensor name.
	Input string `json:"input" yaml:"input"`
	// Output is the preferred output tensor name.
	Output string `json:"output" yaml:"output"`
}
