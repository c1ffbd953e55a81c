package runner

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bianoble/protobreak/internal/errors"
)

// Discover locates the binary for tool. An explicit path is used as-is and
// must exist; otherwise $PATH and the usual Go install locations are searched.
func Discover(tool, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", &errors.ToolNotFoundError{Tool: tool, SearchedPaths: []string{explicit}}
	}

	if path, err := exec.LookPath(tool); err == nil {
		return path, nil
	}

	searched := []string{"$PATH"}
	for _, path := range commonLocations(tool) {
		searched = append(searched, path)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", &errors.ToolNotFoundError{Tool: tool, SearchedPaths: searched}
}

func commonLocations(tool string) []string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	dirs = append(dirs, "/usr/local/bin")

	paths := make([]string, 0, len(dirs))
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, tool))
	}
	return paths
}
