// Package plugin discovers implementations of extension interfaces.
//
// Packages contribute a Catalog listing the concrete types they offer. The
// Manager scans catalogs for types implementing a requested interface and
// caches the result, so repeated lookups for the same interface do not
// rescan. Scanning is the expensive step the test harness avoids repeating
// by keeping one Manager across fixtures.
package plugin

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"go4cms/pkg/common/logger"
	"go4cms/pkg/common/worker"
)

var (
	ErrNotInterface   = errors.New("lookup type is not an interface")
	ErrUnknownCatalog = errors.New("unknown catalog")
	ErrDuplicate      = errors.New("catalog already added")
)

// TypeInfo describes one concrete type and how to build it.
type TypeInfo struct {
	Name    string
	Catalog string
	Type    reflect.Type
	New     func() any
}

// Provide describes the type returned by ctor.
func Provide[T any](ctor func() T) TypeInfo {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return TypeInfo{Name: t.String(), Type: t, New: func() any { return ctor() }}
}

// Catalog is a named set of types contributed by one package.
type Catalog struct {
	Name  string
	Types []TypeInfo
}

type cacheKey struct {
	iface    reflect.Type
	catalogs string
}

// Manager scans catalogs and caches results per interface.
type Manager struct {
	mu       sync.RWMutex
	order    []string
	catalogs map[string]Catalog
	cache    map[cacheKey][]TypeInfo

	scans   atomic.Int64
	pool    *worker.Pool
	log     zerolog.Logger
	initErr error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = logger.WithComponent(l, "plugins") }
}

// WithCatalogs adds catalogs at construction.
func WithCatalogs(cs ...Catalog) Option {
	return func(m *Manager) {
		for _, c := range cs {
			if err := m.addCatalog(c); err != nil && m.initErr == nil {
				m.initErr = err
			}
		}
	}
}

// NewManager creates a manager whose scans run on a pool of workers.
func NewManager(workers int, opts ...Option) (*Manager, error) {
	m := &Manager{
		catalogs: make(map[string]Catalog),
		cache:    make(map[cacheKey][]TypeInfo),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.initErr != nil {
		return nil, fmt.Errorf("plugin manager: %w", m.initErr)
	}
	pool, err := worker.New(workers, worker.WithLogger(m.log))
	if err != nil {
		return nil, fmt.Errorf("plugin manager: %w", err)
	}
	m.pool = pool
	return m, nil
}

// AddCatalog registers a catalog. Adding invalidates the scan cache.
func (m *Manager) AddCatalog(c Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.addCatalog(c); err != nil {
		return err
	}
	m.cache = make(map[cacheKey][]TypeInfo)
	return nil
}

func (m *Manager) addCatalog(c Catalog) error {
	if _, ok := m.catalogs[c.Name]; ok {
		return fmt.Errorf("%s: %w", c.Name, ErrDuplicate)
	}
	types := make([]TypeInfo, len(c.Types))
	for i, ti := range c.Types {
		ti.Catalog = c.Name
		types[i] = ti
	}
	c.Types = types
	m.catalogs[c.Name] = c
	m.order = append(m.order, c.Name)
	return nil
}

// Catalogs returns catalog names in registration order.
func (m *Manager) Catalogs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// ResolveTypes returns the types implementing iface in the named catalogs,
// or in every catalog when none are named. Results are ordered by catalog
// registration order, then by type name.
func (m *Manager) ResolveTypes(iface reflect.Type, catalogs ...string) ([]TypeInfo, error) {
	if iface == nil || iface.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%v: %w", iface, ErrNotInterface)
	}

	m.mu.RLock()
	names := catalogs
	if len(names) == 0 {
		names = append([]string(nil), m.order...)
	}
	key := cacheKey{iface: iface, catalogs: strings.Join(names, ",")}
	if hit, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return append([]TypeInfo(nil), hit...), nil
	}
	selected := make([]Catalog, 0, len(names))
	for _, n := range names {
		c, ok := m.catalogs[n]
		if !ok {
			m.mu.RUnlock()
			return nil, fmt.Errorf("%s: %w", n, ErrUnknownCatalog)
		}
		selected = append(selected, c)
	}
	m.mu.RUnlock()

	found, err := m.scan(iface, selected)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[key] = found
	m.mu.Unlock()
	return append([]TypeInfo(nil), found...), nil
}

func (m *Manager) scan(iface reflect.Type, catalogs []Catalog) ([]TypeInfo, error) {
	m.scans.Add(1)
	results := make([][]TypeInfo, len(catalogs))
	var wg sync.WaitGroup
	for i, c := range catalogs {
		i, c := i, c
		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			var hits []TypeInfo
			for _, ti := range c.Types {
				if ti.Type != nil && ti.Type.Implements(iface) {
					hits = append(hits, ti)
				}
			}
			sort.Slice(hits, func(a, b int) bool { return hits[a].Name < hits[b].Name })
			results[i] = hits
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("scan catalog %s: %w", c.Name, err)
		}
	}
	wg.Wait()

	var out []TypeInfo
	for _, r := range results {
		out = append(out, r...)
	}
	m.log.Debug().Str("interface", iface.String()).Int("catalogs", len(catalogs)).Int("found", len(out)).Msg("scanned catalogs")
	return out, nil
}

// ScanCount returns how many uncached scans have run.
func (m *Manager) ScanCount() int64 { return m.scans.Load() }

// ClearCache forgets every cached scan result.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	m.cache = make(map[cacheKey][]TypeInfo)
	m.mu.Unlock()
}

// PoolStats exposes the scan pool counters.
func (m *Manager) PoolStats() worker.Stats { return m.pool.Stats() }

// Close releases the scan pool.
func (m *Manager) Close() error {
	m.pool.Release()
	return nil
}

// ResolveTypesOf is ResolveTypes for the interface type T.
func ResolveTypesOf[T any](m *Manager, catalogs ...string) ([]TypeInfo, error) {
	return m.ResolveTypes(reflect.TypeOf((*T)(nil)).Elem(), catalogs...)
}

// FindAndCreateInstances builds one instance of every type implementing T.
func FindAndCreateInstances[T any](m *Manager, catalogs ...string) ([]T, error) {
	types, err := ResolveTypesOf[T](m, catalogs...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(types))
	for _, ti := range types {
		v, ok := ti.New().(T)
		if !ok {
			return nil, fmt.Errorf("create %s: constructor returned %T", ti.Name, ti.New())
		}
		out = append(out, v)
	}
	return out, nil
}
