package buf

import (
	"path/filepath"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/sandbox"
)

// Args builds the flags shared by every buf invocation that operates on a
// target directory. buf requires roots relative to its working directory
// and rejects "." as a path, so --path is omitted when target is root.
func Args(root, target, configFile string, extra []string) ([]string, error) {
	var args []string

	rel, err := sandbox.Relative(root, target)
	if err != nil {
		return nil, errors.Configuration("path", "%s must be under the working root %s: %v", target, root, err)
	}
	if rel != "." {
		args = append(args, "--path", filepath.ToSlash(rel))
	}

	if configFile != "" {
		args = append(args, "--config", configFile)
	}

	args = append(args, extra...)
	return args, nil
}
