package magetasks

import (
	"os"
	"path/filepath"
)

var (
	// ModulePath is the Go module path.
	ModulePath = "github.com/dkoosis/startend"

	// BinPath is the output path for built binaries.
	BinPath = "./bin/startend"

	// ProjectRoot is the root directory of the project. Tasks without a
	// Dir run there; empty means the current directory.
	ProjectRoot string
)

// Initialize sets up the magetasks package.
// Call this from the Magefile init() function.
func Initialize() error {
	var err error
	ProjectRoot, err = os.Getwd()
	if err != nil {
		return err
	}

	binDir := filepath.Join(ProjectRoot, "bin")
	return os.MkdirAll(binDir, 0o750)
}
