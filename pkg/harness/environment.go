// Package harness boots and tears down a CMS instance around each test.
//
// An Environment holds what outlives a single test: the plugin manager and
// its scan cache, the mapper registry and the flag recording that mapper
// configuration has run. Create one per test binary, usually in TestMain,
// and hand it to every fixture. A Fixture holds the per-test state: content
// directories, settings file, legacy editor map, resolution container and
// the application context.
package harness

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"go4cms/pkg/common/logger"
	"go4cms/pkg/editors"
	"go4cms/pkg/mapper"
	"go4cms/pkg/mapping"
	"go4cms/pkg/plugin"
)

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithCatalogs replaces the default plugin catalogs (core editors and core
// mappings).
func WithCatalogs(cs ...plugin.Catalog) EnvOption {
	return func(e *Environment) { e.catalogs = cs }
}

// WithLogger sets the environment logger. Fixtures derive theirs from it.
func WithLogger(l zerolog.Logger) EnvOption {
	return func(e *Environment) { e.log = l }
}

// WithPluginWorkers sets the size of the plugin scan pool.
func WithPluginWorkers(n int) EnvOption {
	return func(e *Environment) { e.workers = n }
}

// Environment is the state shared by the fixtures of one test binary.
type Environment struct {
	catalogs []plugin.Catalog
	workers  int
	log      zerolog.Logger

	mu      sync.Mutex
	plugins *plugin.Manager
	created int

	mappings   *mapper.Registry
	mapperInit mapper.Initializer
}

// NewEnvironment returns an environment with no plugin manager yet; the
// first fixture creates it.
func NewEnvironment(opts ...EnvOption) *Environment {
	e := &Environment{
		catalogs: []plugin.Catalog{editors.Catalog(), mapping.Catalog()},
		workers:  4,
		log:      zerolog.Nop(),
		mappings: mapper.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.WithComponent(e.log, "harness")
	return e
}

// PluginManager returns the current plugin manager, creating it on first
// use.
func (e *Environment) PluginManager() (*plugin.Manager, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plugins != nil {
		return e.plugins, nil
	}
	m, err := plugin.NewManager(e.workers, plugin.WithLogger(e.log), plugin.WithCatalogs(e.catalogs...))
	if err != nil {
		return nil, err
	}
	e.plugins = m
	e.created++
	e.log.Debug().Int("catalogs", len(e.catalogs)).Msg("plugin manager created")
	return m, nil
}

// CurrentPluginManager returns the plugin manager without creating one.
func (e *Environment) CurrentPluginManager() *plugin.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plugins
}

// PluginManagersCreated counts plugin managers built by this environment.
func (e *Environment) PluginManagersCreated() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

// ResetPluginManager discards the current plugin manager and its scan
// cache. The next fixture builds a new one.
func (e *Environment) ResetPluginManager() error {
	e.mu.Lock()
	m := e.plugins
	e.plugins = nil
	e.mu.Unlock()
	if m == nil {
		return nil
	}
	e.log.Debug().Msg("plugin manager reset")
	if err := m.Close(); err != nil {
		return fmt.Errorf("close plugin manager: %w", err)
	}
	return nil
}

// Mappings returns the shared mapper registry.
func (e *Environment) Mappings() *mapper.Registry { return e.mappings }

// MapperInitialized reports whether mapper configuration has run.
func (e *Environment) MapperInitialized() bool { return e.mapperInit.Initialized() }

// MapperRuns counts mapper configuration attempts.
func (e *Environment) MapperRuns() int { return e.mapperInit.Runs() }

// Close releases the plugin manager.
func (e *Environment) Close() error {
	return e.ResetPluginManager()
}
