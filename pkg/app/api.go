package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

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

// Config holds the command line inputs of the API service.
type Config struct {
	Root            string
	Addr            string
	LogFormat       string
	PluginWorkers   int
	ShutdownTimeout time.Duration
}

// DefaultConfig serves ./site on :8080.
func DefaultConfig() Config {
	return Config{
		Root:            "site",
		Addr:            ":8080",
		LogFormat:       "console",
		PluginWorkers:   4,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Runtime is a booted CMS instance.
type Runtime struct {
	Content  *fs.ContentFS
	Settings *settings.Store
	Legacy   *editors.LegacyMap
	Plugins  *plugin.Manager
	Resolver *resolve.Container
	App      *core.ApplicationContext
	Mappings *mapper.Registry
	Server   *restful.Server
	Log      zerolog.Logger
}

// Boot prepares the content root, loads settings, discovers plugins,
// builds the application context, configures the mapper and freezes
// resolution. The server is created but not started.
func Boot(ctx context.Context, cfg Config) (*Runtime, error) {
	rt := &Runtime{
		Content:  fs.NewOnDisk(cfg.Root),
		Legacy:   editors.NewLegacyMap(),
		Resolver: resolve.New(),
		Mappings: mapper.NewRegistry(),
	}
	if err := rt.Content.InitializeDirectories(); err != nil {
		return nil, err
	}

	rt.Settings = settings.NewStore(rt.Content.GetFs(), settings.DefaultPath)
	if err := rt.Settings.EnsureFile(); err != nil {
		return nil, err
	}
	st, err := rt.Settings.Load()
	if err != nil {
		return nil, err
	}
	if st.Database.DSN == "" {
		st.Database.DSN = filepath.Join(cfg.Root, fs.DirData, "cms.db")
	}

	lc := logger.DefaultConfig()
	lc.Level = st.LogLevel
	if st.Debug {
		lc.Level = "debug"
	}
	if cfg.LogFormat != "" {
		lc.Format = cfg.LogFormat
	}
	if err := logger.Init(lc); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	rt.Log = logger.WithComponent(*logger.GetLogger(), "cms")
	rt.Log.Info().Str("root", cfg.Root).Str("settings", rt.Settings.Path()).Msg("content root ready")

	if err := rt.Legacy.CreateMappingsForCoreEditors(); err != nil {
		return nil, err
	}

	rt.Plugins, err = plugin.NewManager(cfg.PluginWorkers,
		plugin.WithLogger(rt.Log),
		plugin.WithCatalogs(editors.Catalog(), mapping.Catalog()))
	if err != nil {
		return nil, err
	}
	eds, err := plugin.FindAndCreateInstances[editors.PropertyEditor](rt.Plugins)
	if err != nil {
		_ = rt.Plugins.Close()
		return nil, err
	}

	rt.App, err = core.Build(ctx, core.BuildOptions{
		Settings: st,
		Content:  rt.Content,
		Editors:  eds,
		Legacy:   rt.Legacy,
		Log:      rt.Log,
	})
	if err != nil {
		_ = rt.Plugins.Close()
		return nil, fmt.Errorf("build application context: %w", err)
	}

	n, err := mapping.Configure(rt.Plugins, rt.Mappings, rt.App)
	if err != nil {
		return nil, errors.Join(err, rt.Close(ctx))
	}
	rt.Log.Debug().Int("configurations", n).Msg("mapper configured")

	if err := errors.Join(
		resolve.Provide(rt.Resolver, rt.App),
		resolve.Provide(rt.Resolver, rt.Plugins),
		resolve.Provide(rt.Resolver, rt.Mappings),
		resolve.Provide(rt.Resolver, rt.Settings),
	); err != nil {
		return nil, errors.Join(err, rt.Close(ctx))
	}
	rt.Resolver.Freeze()

	rt.Server = restful.NewServer(
		restful.WithAddress(cfg.Addr),
		restful.WithShutdownTimeout(cfg.ShutdownTimeout),
		restful.WithLogger(rt.Log))
	contentapi.Register(rt.Server.Engine.Group("/api"), rt.App, rt.Mappings, rt.Plugins)
	rt.App.MarkReady()
	return rt, nil
}

// Close stops the server if it runs and releases the application context
// and plugin manager.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Server != nil {
		if err := rt.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
	}
	if rt.App != nil {
		errs = append(errs, rt.App.Dispose())
	}
	if rt.Plugins != nil {
		errs = append(errs, rt.Plugins.Close())
	}
	return errors.Join(errs...)
}

// RunAPI boots the service and serves until ctx is cancelled. Boot itself
// is not interrupted by ctx.
func RunAPI(ctx context.Context, cfg Config) error {
	rt, err := Boot(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return err
	}
	rt.Log.Info().Msg("Starting go4cms API service")
	if err := rt.Server.Start(); err != nil {
		return errors.Join(err, rt.Close(context.Background()))
	}

	<-ctx.Done()
	rt.Log.Info().Msg("Shutting down server...")
	if err := rt.Close(context.Background()); err != nil {
		rt.Log.Error().Err(err).Msg("shutdown error")
		return err
	}
	rt.Log.Info().Msg("Server exited cleanly")
	return nil
}
