package harness

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/settings"
	"go4cms/pkg/core"
	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
	"go4cms/pkg/plugin"
)

// Options are the extension points of a fixture. Nil hooks use the
// exported defaults, which overrides may call and extend.
type Options struct {
	// SetupPluginManager returns the plugin manager for the fixture.
	SetupPluginManager func(env *Environment, f *Fixture) (*plugin.Manager, error)
	// SetupApplicationContext builds the fixture's application context.
	SetupApplicationContext func(ctx context.Context, f *Fixture) (*core.ApplicationContext, error)
	// FreezeResolution locks the fixture's resolution container.
	FreezeResolution func(f *Fixture) error

	// ResetPluginManager discards the plugin manager on teardown, forcing
	// the next fixture to rescan.
	ResetPluginManager bool

	// Settings adjusts the loaded settings before the application context
	// is built.
	Settings func(*settings.Settings)

	// ContentRoot puts the content directories on disk under this path.
	// Empty keeps them in memory.
	ContentRoot string

	// Log replaces the environment logger for this fixture.
	Log *zerolog.Logger
}

// Option mutates Options.
type Option func(*Options)

func WithSetupPluginManager(fn func(*Environment, *Fixture) (*plugin.Manager, error)) Option {
	return func(o *Options) { o.SetupPluginManager = fn }
}

func WithSetupApplicationContext(fn func(context.Context, *Fixture) (*core.ApplicationContext, error)) Option {
	return func(o *Options) { o.SetupApplicationContext = fn }
}

func WithFreezeResolution(fn func(*Fixture) error) Option {
	return func(o *Options) { o.FreezeResolution = fn }
}

// WithResetPluginManager sets the ResetPluginManager flag.
func WithResetPluginManager() Option {
	return func(o *Options) { o.ResetPluginManager = true }
}

func WithSettings(fn func(*settings.Settings)) Option {
	return func(o *Options) { o.Settings = fn }
}

func WithFixtureLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Log = &l }
}

// OnDisk keeps content under dir instead of memory.
func OnDisk(dir string) Option {
	return func(o *Options) { o.ContentRoot = dir }
}

func (o *Options) withDefaults() {
	if o.SetupPluginManager == nil {
		o.SetupPluginManager = DefaultSetupPluginManager
	}
	if o.SetupApplicationContext == nil {
		o.SetupApplicationContext = DefaultSetupApplicationContext
	}
	if o.FreezeResolution == nil {
		o.FreezeResolution = DefaultFreezeResolution
	}
}

// DefaultSetupPluginManager reuses the environment's plugin manager,
// creating it on first use.
func DefaultSetupPluginManager(env *Environment, _ *Fixture) (*plugin.Manager, error) {
	return env.PluginManager()
}

// DefaultSetupApplicationContext builds an application context with a
// disabled cache, a private in-memory database unless the settings name
// one, the editors discovered by the plugin manager and the publishing
// strategy derived from settings.
func DefaultSetupApplicationContext(ctx context.Context, f *Fixture) (*core.ApplicationContext, error) {
	st := f.Settings.Get()
	dsn := st.Database.DSN
	if dsn == "" {
		dsn = dbcontext.MemoryDSN()
	}
	eds, err := plugin.FindAndCreateInstances[editors.PropertyEditor](f.Plugins)
	if err != nil {
		return nil, fmt.Errorf("discover property editors: %w", err)
	}
	return core.Build(ctx, core.BuildOptions{
		Settings: st,
		Content:  f.Content,
		Database: dbcontext.NewSQLiteFactory(dsn),
		Cache:    cache.NewDisabledHelper(),
		Editors:  eds,
		Legacy:   f.Legacy,
		Log:      f.Log,
	})
}

// DefaultFreezeResolution freezes the fixture's container.
func DefaultFreezeResolution(f *Fixture) error {
	f.Resolver.Freeze()
	return nil
}
