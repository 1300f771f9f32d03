// Package resolve is the dependency-resolution container. Registrations are
// accepted until Freeze; after that the container is read-only until Reset.
package resolve

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	ErrFrozen        = errors.New("resolution is frozen")
	ErrDuplicate     = errors.New("name already registered")
	ErrNotRegistered = errors.New("name not registered")
)

// Factory builds a value on first resolution.
type Factory func(c *Container) (any, error)

type entry struct {
	factory Factory
	once    sync.Once
	value   any
	err     error
}

// Container maps names to lazily built singletons.
type Container struct {
	mu      sync.RWMutex
	entries map[string]*entry
	frozen  bool
}

// New returns an empty, unfrozen container.
func New() *Container {
	return &Container{entries: make(map[string]*entry)}
}

// Register adds a factory under name.
func (c *Container) Register(name string, f Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("register %q: %w", name, ErrFrozen)
	}
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicate)
	}
	c.entries[name] = &entry{factory: f}
	return nil
}

// RegisterInstance adds an already built value under name.
func (c *Container) RegisterInstance(name string, v any) error {
	return c.Register(name, func(*Container) (any, error) { return v, nil })
}

// Resolve returns the singleton registered under name, building it on
// first use.
func (c *Container) Resolve(name string) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrNotRegistered)
	}
	e.once.Do(func() { e.value, e.err = e.factory(c) })
	if e.err != nil {
		return nil, fmt.Errorf("resolve %q: %w", name, e.err)
	}
	return e.value, nil
}

// Freeze locks the container against further registrations.
func (c *Container) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// IsFrozen reports whether Freeze has been called since the last Reset.
func (c *Container) IsFrozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Names returns the registered names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reset drops every registration and unfreezes the container.
func (c *Container) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.frozen = false
	c.mu.Unlock()
}

// NameOf is the registration name used by Provide and Get for T.
func NameOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// Provide registers v under the name of its static type T.
func Provide[T any](c *Container, v T) error {
	return c.RegisterInstance(NameOf[T](), v)
}

// ProvideFunc registers a typed factory under the name of T.
func ProvideFunc[T any](c *Container, f func(*Container) (T, error)) error {
	return c.Register(NameOf[T](), func(c *Container) (any, error) { return f(c) })
}

// Get resolves the value registered for T.
func Get[T any](c *Container) (T, error) {
	var zero T
	v, err := c.Resolve(NameOf[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resolve %q: got %T", NameOf[T](), v)
	}
	return t, nil
}

// MustGet is Get for wiring code where a missing registration is a bug.
func MustGet[T any](c *Container) T {
	v, err := Get[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
