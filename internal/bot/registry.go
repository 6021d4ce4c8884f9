package bot

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateModule is returned when two modules register under one name.
var ErrDuplicateModule = errors.New("module already registered")

// Registry keeps modules in registration order, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	modules map[string]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds m unless a module with the same name is already present.
func (r *Registry) Register(m Module) error {
	name := m.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return errors.Wrapf(ErrDuplicateModule, "register %q", name)
	}
	r.modules[name] = m
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registered module names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Modules returns the registered modules in registration order. The slice is
// a copy.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.modules[name])
	}
	return result
}

// globalRegistry collects modules that register themselves from init().
var globalRegistry = NewRegistry()

// Register adds m to the global registry. It panics on a duplicate name,
// which can only be a programming error since it runs from init().
func Register(m Module) {
	if err := globalRegistry.Register(m); err != nil {
		panic(err)
	}
}

// Modules returns the globally registered modules.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry empties the global registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
