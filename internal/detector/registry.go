package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bianoble/protobreak/internal/runner"
)

// Factory builds a backend from resolved options.
type Factory func(o *Options, r runner.Runner) (Backend, error)

// Registry maps tool names to backend factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new empty backend registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the buf and protolock backends.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(ToolBuf, newBufBackend)
	reg.Register(ToolProtolock, newProtolockBackend)
	return reg
}

// Register adds a factory for the given tool name.
func (r *Registry) Register(tool string, f Factory) {
	r.factories[tool] = f
}

// Get returns the factory for the given tool name.
func (r *Registry) Get(tool string) (Factory, error) {
	f, ok := r.factories[tool]
	if !ok {
		return nil, fmt.Errorf("unknown tool '%s' — supported tools: %s", tool, r.supportedTools())
	}
	return f, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) supportedTools() string {
	names := r.Names()
	if len(names) == 0 {
		return "(none registered)"
	}
	return strings.Join(names, ", ")
}
