package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/onnx-tester/util"
)

// SharedLibraryEnv overrides the onnxruntime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var envMu sync.Mutex

// DefaultSharedLibPath returns the onnxruntime shared library for this
// platform: SharedLibraryEnv if set, otherwise a file under third_party/.
//
// Returns:
//   - string: The library path.
func DefaultSharedLibPath() string {
	if p := os.Getenv(SharedLibraryEnv); p != "" {
		return p
	}
	return platformLibPath(runtime.GOOS, runtime.GOARCH)
}

func platformLibPath(goos, goarch string) string {
	switch goos {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		if goarch == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	default:
		if goarch == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

// InitializeEnvironment loads the onnxruntime shared library and creates the
// global ORT environment. Calling it again once initialized does nothing.
//
// Arguments:
//   - libPath: The shared library. Empty means DefaultSharedLibPath().
//
// Returns:
//   - error: util.ErrIO if the library is missing, or the ORT error.
func InitializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath == "" {
		libPath = DefaultSharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(util.ErrIO, "ONNX Runtime library not found at %s (set %s): %v", libPath, SharedLibraryEnv, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// DestroyEnvironment tears down the global ORT environment if it exists.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
