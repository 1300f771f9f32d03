package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go4cms/pkg/common/fs"
	"go4cms/pkg/common/logger"
	"go4cms/pkg/common/restful"
	"go4cms/pkg/common/settings"
	"go4cms/pkg/contentapi"
	"go4cms/pkg/core"
	"go4cms/pkg/editors"
	"go4cms/pkg/mapper"
	"go4cms/pkg/mapping"
	"go4cms/pkg/plugin"
	"go4cms/pkg/resolve"
)

// Fixture is the per-test CMS instance.
type Fixture struct {
	Env      *Environment
	Content  *fs.ContentFS
	Settings *settings.Store
	Legacy   *editors.LegacyMap
	Plugins  *plugin.Manager
	Resolver *resolve.Container
	App      *core.ApplicationContext
	Log      zerolog.Logger

	opts     Options
	mu       sync.Mutex
	tornDown bool
}

// Mappings returns the environment's mapper registry.
func (f *Fixture) Mappings() *mapper.Registry { return f.Env.mappings }

// Options returns the options the fixture was set up with, defaults
// filled in.
func (f *Fixture) Options() Options { return f.opts }

// Router returns a gin engine serving the content API under /api.
func (f *Fixture) Router() *gin.Engine {
	r := restful.NewEngine(f.Log)
	contentapi.Register(r.Group("/api"), f.App, f.Mappings(), f.Plugins)
	return r
}

// Setup builds a fixture. On error the steps that completed are torn down
// and the joined errors are returned.
func (e *Environment) Setup(ctx context.Context, opts Options) (*Fixture, error) {
	opts.withDefaults()
	f := &Fixture{
		Env:      e,
		Resolver: resolve.New(),
		Log:      e.log,
		opts:     opts,
	}
	if opts.Log != nil {
		f.Log = *opts.Log
	}
	if err := f.setup(ctx); err != nil {
		return nil, errors.Join(err, f.Teardown())
	}
	return f, nil
}

func (f *Fixture) setup(ctx context.Context) error {
	e := f.Env

	if f.opts.ContentRoot != "" {
		f.Content = fs.NewOnDisk(f.opts.ContentRoot)
	} else {
		f.Content = fs.NewMemory()
	}
	if err := f.Content.InitializeDirectories(); err != nil {
		return err
	}

	f.Settings = settings.NewStore(f.Content.GetFs(), settings.DefaultPath)
	if err := f.Settings.EnsureFile(); err != nil {
		return err
	}
	if _, err := f.Settings.Load(); err != nil {
		return err
	}
	if f.opts.Settings != nil {
		f.Settings.Set(f.opts.Settings)
	}
	if lvl, err := zerolog.ParseLevel(f.Settings.Get().LogLevel); err == nil && lvl > f.Log.GetLevel() {
		f.Log = f.Log.Level(lvl)
	}

	f.Legacy = editors.NewLegacyMap()
	if err := f.Legacy.CreateMappingsForCoreEditors(); err != nil {
		return fmt.Errorf("legacy editor map: %w", err)
	}

	plugins, err := f.opts.SetupPluginManager(e, f)
	if err != nil {
		return fmt.Errorf("setup plugin manager: %w", err)
	}
	if plugins == nil {
		return errors.New("setup plugin manager: no manager returned")
	}
	f.Plugins = plugins

	app, err := f.opts.SetupApplicationContext(ctx, f)
	if err != nil {
		return fmt.Errorf("setup application context: %w", err)
	}
	f.App = app

	ran, err := e.mapperInit.Initialize(func() error {
		n, err := mapping.Configure(f.Plugins, e.mappings, f.App)
		if err != nil {
			return err
		}
		e.log.Debug().Int("configurations", n).Int("mappings", e.mappings.Len()).Msg("mapper configured")
		return nil
	})
	if err != nil {
		return fmt.Errorf("configure mapper: %w", err)
	}
	if ran {
		f.Log.Debug().Msg("mapper initialized by this fixture")
	}

	if err := f.register(); err != nil {
		return err
	}
	if err := f.opts.FreezeResolution(f); err != nil {
		return fmt.Errorf("freeze resolution: %w", err)
	}
	return nil
}

// register exposes the fixture's collaborators through the resolver.
func (f *Fixture) register() error {
	return errors.Join(
		resolve.Provide(f.Resolver, f.Content),
		resolve.Provide(f.Resolver, f.Settings),
		resolve.Provide(f.Resolver, f.Legacy),
		resolve.Provide(f.Resolver, f.Plugins),
		resolve.Provide(f.Resolver, f.App),
		resolve.Provide(f.Resolver, f.Mappings()),
	)
}

// Teardown releases the fixture. Every step runs even if an earlier one
// fails. Calling it again is a no-op.
func (f *Fixture) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tornDown {
		return nil
	}
	f.tornDown = true

	var errs []error
	if f.Settings != nil {
		f.Settings.Reset()
	}
	if f.App != nil {
		if err := f.App.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose application context: %w", err))
		}
		f.App = nil
	}
	if f.Content != nil {
		if err := f.Content.CleanDirectories(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.Settings != nil {
		if err := f.Settings.Remove(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.opts.ResetPluginManager {
		if err := f.Env.ResetPluginManager(); err != nil {
			errs = append(errs, err)
		}
		f.Plugins = nil
	}
	if f.Legacy != nil {
		f.Legacy.Reset()
	}
	f.Resolver.Reset()
	return errors.Join(errs...)
}

// IsTornDown reports whether Teardown has run.
func (f *Fixture) IsTornDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tornDown
}

// Logger returns the fixture logger tagged with component.
func (f *Fixture) Logger(component string) zerolog.Logger {
	return logger.WithComponent(f.Log, component)
}
