// Package mapper is a small object mapper: typed conversion functions
// registered per (source, destination) pair.
package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go4cms/pkg/core"
)

var ErrNoMapping = errors.New("no mapping registered")

type pair struct {
	src, dst reflect.Type
}

// Registry holds mapping functions.
type Registry struct {
	mu   sync.RWMutex
	maps map[pair]func(any) (any, error)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[pair]func(any) (any, error))}
}

// CreateMap registers fn as the mapping from S to D, replacing any earlier
// one.
func CreateMap[S, D any](r *Registry, fn func(S) (D, error)) {
	key := pair{reflect.TypeOf((*S)(nil)).Elem(), reflect.TypeOf((*D)(nil)).Elem()}
	r.mu.Lock()
	r.maps[key] = func(v any) (any, error) { return fn(v.(S)) }
	r.mu.Unlock()
}

// Map converts src to D.
func Map[S, D any](r *Registry, src S) (D, error) {
	var zero D
	key := pair{reflect.TypeOf((*S)(nil)).Elem(), reflect.TypeOf((*D)(nil)).Elem()}
	r.mu.RLock()
	fn, ok := r.maps[key]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%s -> %s: %w", key.src, key.dst, ErrNoMapping)
	}
	out, err := fn(src)
	if err != nil {
		return zero, fmt.Errorf("%s -> %s: %w", key.src, key.dst, err)
	}
	return out.(D), nil
}

// MapSlice converts every element of src.
func MapSlice[S, D any](r *Registry, src []S) ([]D, error) {
	out := make([]D, 0, len(src))
	for _, s := range src {
		d, err := Map[S, D](r, s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Has reports whether a mapping from S to D exists.
func Has[S, D any](r *Registry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.maps[pair{reflect.TypeOf((*S)(nil)).Elem(), reflect.TypeOf((*D)(nil)).Elem()}]
	return ok
}

// Len returns the number of registered mappings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.maps)
}

// Configuration is the extension interface discovered by the plugin
// manager to populate a Registry.
type Configuration interface {
	ConfigureMappings(r *Registry, app *core.ApplicationContext)
}

// Initializer runs mapper configuration at most once.
type Initializer struct {
	mu          sync.Mutex
	initialized bool
	runs        int
}

// Initialize runs fn unless a previous call already succeeded. A failed run
// leaves the initializer uninitialized so a later call retries.
func (i *Initializer) Initialize(fn func() error) (ran bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.initialized {
		return false, nil
	}
	i.runs++
	if err := fn(); err != nil {
		return true, err
	}
	i.initialized = true
	return true, nil
}

// Initialized reports whether a run has succeeded.
func (i *Initializer) Initialized() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.initialized
}

// Runs returns how many times fn has been invoked.
func (i *Initializer) Runs() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.runs
}
