// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/nvr-ai/onnx-tester/images"
	"github.com/nvr-ai/onnx-tester/models/mnist"
	"github.com/nvr-ai/onnx-tester/models/model"
	"github.com/nvr-ai/onnx-tester/models/postprocess"
)

var registry = map[model.Name]model.Spec{
	model.ModelNameYOLO: {
		Name:      model.ModelNameYOLO,
		Family:    model.ModelFamilyYOLO,
		InputSize: images.Size{Width: postprocess.DefaultInputSize, Height: postprocess.DefaultInputSize},
		Channels:  3,
		Input:     "images",
		Output:    "output0",
	},
	model.ModelNameMNIST: {
		Name:      model.ModelNameMNIST,
		Family:    model.ModelFamilyMNIST,
		InputSize: images.Size{Width: mnist.ImageSize, Height: mnist.ImageSize},
		Channels:  mnist.Channels,
		Input:     mnist.InputName,
		Output:    mnist.OutputName,
	},
}

// Lookup returns the registered spec for a model name.
//
// Arguments:
//   - name: The model name.
//
// Returns:
//   - model.Spec: The input/output contract.
//   - error: An error if the model name is not registered.
//
// Example:
//
// ```go
//
//	spec, err := models.Lookup(model.ModelNameYOLO)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(spec.InputSize) // 640x640
//
// ```
func Lookup(name model.Name) (model.Spec, error) {
	spec, ok := registry[name]
	if !ok {
		return model.Spec{}, fmt.Errorf("unsupported model name: %s", name)
	}
	return spec, nil
}
