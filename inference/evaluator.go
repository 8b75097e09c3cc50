// Package inference - Model evaluation and input preparation.
package inference

import (
	"context"

	"gorgonia.org/tensor"
)

// Evaluator runs a single forward pass.
//
// Any engine satisfying "given a [1, C, H, W] float32 tensor, return the raw
// output tensor" can stand behind it.
type Evaluator interface {
	// Run evaluates the model on input and returns its first output.
	Run(ctx context.Context, input *tensor.Dense) (tensor.Tensor, error)
	// Close releases the resources held by the evaluator.
	Close() error
}

// EvaluatorFunc adapts a function to the Evaluator interface. Close is a
// no-op.
type EvaluatorFunc func(ctx context.Context, input *tensor.Dense) (tensor.Tensor, error)

// Run calls f.
func (f EvaluatorFunc) Run(ctx context.Context, input *tensor.Dense) (tensor.Tensor, error) {
	return f(ctx, input)
}

// Close does nothing.
func (f EvaluatorFunc) Close() error {
	return nil
}
