package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newClassifyCommand(v *viper.Viper, configPath *string, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <image_path> <model_path>",
		Short: "Run an exported digit classifier on an image",
		Long: "Converts the image to a 28x28 grayscale tensor, runs the classifier and\n" +
			"prints the predicted digit with its softmax confidence.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(v, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.report(runClassify(cmd.Context(), a, out, args[0], args[1]))
		},
	}
}

func runClassify(ctx context.Context, a *app, out io.Writer, imagePath, modelPath string) error {
	prediction, err := a.detector().Classify(ctx, imagePath, modelPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Predicted digit: %d (confidence %.2f)\n", prediction.Digit, prediction.Confidence)
	return nil
}
