package buf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LockFileName is the dependency pin file buf writes next to buf.yaml.
const LockFileName = "buf.lock"

// DepsLock is the subset of buf.lock needed to report pinned dependencies.
type DepsLock struct {
	Version string      `yaml:"version,omitempty"`
	Deps    []LockedDep `yaml:"deps,omitempty"`
}

// LockedDep is one pinned module.
type LockedDep struct {
	Remote     string `yaml:"remote,omitempty"`
	Owner      string `yaml:"owner,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	Commit     string `yaml:"commit,omitempty"`
	// Name is used by v2 lock files instead of remote/owner/repository.
	Name string `yaml:"name,omitempty"`
}

// Module returns the module reference of the dependency.
func (d LockedDep) Module() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("%s/%s/%s", d.Remote, d.Owner, d.Repository)
}

// Names lists the module references of all pinned dependencies.
func (l *DepsLock) Names() []string {
	names := make([]string, 0, len(l.Deps))
	for _, d := range l.Deps {
		names = append(names, d.Module())
	}
	return names
}

// ReadLock parses the buf.lock in dir.
func ReadLock(dir string) (*DepsLock, error) {
	path := filepath.Join(dir, LockFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var l DepsLock
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &l, nil
}
