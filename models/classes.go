package models

import "fmt"

// LabelSet identifies a list of class names.
type LabelSet string

const (
	// LabelSetNone labels detections by class index ("Class 3").
	LabelSetNone LabelSet = ""
	// LabelSetCOCO is the 80 COCO classes, no background, as YOLO exports
	// index them.
	LabelSetCOCO LabelSet = "coco"
	// LabelSetDigits is "0" … "9".
	LabelSetDigits LabelSet = "digits"
)

// YOLOClasses are the COCO class names in YOLO index order.
var YOLOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// DigitClasses are the MNIST class names.
var DigitClasses = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// Labels returns the class names of a label set. LabelSetNone returns nil.
//
// Arguments:
//   - set: The label set.
//
// Returns:
//   - []string: The names indexed by class id.
//   - error: An error if the set is unknown.
func Labels(set LabelSet) ([]string, error) {
	switch set {
	case LabelSetNone:
		return nil, nil
	case LabelSetCOCO:
		return YOLOClasses, nil
	case LabelSetDigits:
		return DigitClasses, nil
	default:
		return nil, fmt.Errorf("unknown label set %q", set)
	}
}
