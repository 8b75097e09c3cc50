// Package util - File validation helpers shared by the pipelines.
package util

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrIO is returned when an image or model file is missing, unreadable or
// cannot be written.
var ErrIO = errors.New("io error")

// DefaultOutputName is the file name of the annotated image, written next to
// the input image.
const DefaultOutputName = "output.jpg"

// Supported file extensions.
var (
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}
	ModelExtensions = []string{".onnx"}
)

// ValidateFile checks that the file exists, is a regular file and has one of
// the supported extensions.
//
// Arguments:
//   - path: The file to check.
//   - supportedExtensions: Lower-case extensions including the dot.
//
// Returns:
//   - error: ErrIO wrapped with the reason, or nil.
func ValidateFile(path string, supportedExtensions []string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrIO, "file not found: %s", path)
		}
		return errors.Wrapf(ErrIO, "stat %s: %v", path, err)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrIO, "%s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return nil
		}
	}

	return errors.Wrapf(ErrIO, "unsupported file extension: %q. Supported extensions: %v", ext, supportedExtensions)
}

// OutputPath returns the path of a sibling file of imagePath named name.
//
// Arguments:
//   - imagePath: The input image.
//   - name: The output file name. Empty means DefaultOutputName.
//
// Returns:
//   - string: <dir of imagePath>/<name>.
func OutputPath(imagePath, name string) string {
	if name == "" {
		name = DefaultOutputName
	}
	return filepath.Join(filepath.Dir(imagePath), name)
}
