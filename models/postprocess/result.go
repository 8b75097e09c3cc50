// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/onnx-tester/images"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

// Label returns the annotation text for the result, e.g. "Class 3: 0.87".
//
// Arguments:
//   - names: Optional class names indexed by class id. When a name exists
//     for the class it replaces "Class <id>".
//
// Returns:
//   - string: The label.
func (r Result) Label(names []string) string {
	if r.Class >= 0 && r.Class < len(names) {
		return fmt.Sprintf("%s: %.2f", names[r.Class], r.Score)
	}
	return fmt.Sprintf("Class %d: %.2f", r.Class, r.Score)
}

// Detections holds the surviving candidates of one output tensor as three
// parallel slices. Index i of each slice belongs to the same candidate.
type Detections struct {
	Boxes    []images.Rect
	Scores   []float32
	ClassIDs []int
}

func newDetections(capacity int) *Detections {
	return &Detections{
		Boxes:    make([]images.Rect, 0, capacity),
		Scores:   make([]float32, 0, capacity),
		ClassIDs: make([]int, 0, capacity),
	}
}

func (d *Detections) add(box images.Rect, score float32, class int) {
	d.Boxes = append(d.Boxes, box)
	d.Scores = append(d.Scores, score)
	d.ClassIDs = append(d.ClassIDs, class)
}

// Len returns the number of detections.
func (d *Detections) Len() int {
	return len(d.Scores)
}

// Results zips the parallel slices into results, preserving order.
func (d *Detections) Results() []Result {
	results := make([]Result, d.Len())
	for i := range results {
		results[i] = Result{
			Box:   d.Boxes[i],
			Score: d.Scores[i],
			Class: d.ClassIDs[i],
		}
	}
	return results
}

// FromResults builds Detections from results, preserving order.
func FromResults(results []Result) *Detections {
	d := newDetections(len(results))
	for _, r := range results {
		d.add(r.Box, r.Score, r.Class)
	}
	return d
}
