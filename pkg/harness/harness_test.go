package harness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/common/settings"
	"go4cms/pkg/content"
	"go4cms/pkg/core"
	"go4cms/pkg/editors"
	"go4cms/pkg/harness"
	"go4cms/pkg/mapper"
	"go4cms/pkg/mapping"
	"go4cms/pkg/plugin"
	"go4cms/pkg/resolve"
)

func newEnv(t *testing.T, opts ...harness.EnvOption) *harness.Environment {
	t.Helper()
	env := harness.NewEnvironment(opts...)
	t.Cleanup(func() { assert.NoError(t, env.Close()) })
	return env
}

func setup(t *testing.T, env *harness.Environment, opts harness.Options) *harness.Fixture {
	t.Helper()
	f, err := env.Setup(context.Background(), opts)
	require.NoError(t, err)
	return f
}

func TestSetupBuildsEveryCollaborator(t *testing.T) {
	env := newEnv(t)
	f := setup(t, env, harness.Options{})

	ok, err := f.Content.DirectoriesExist()
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := afero.Exists(f.Content.GetFs(), settings.DefaultPath)
	require.NoError(t, err)
	assert.True(t, exists, "settings file seeded")

	alias, ok := f.Legacy.Alias(editors.LegacyTextboxID)
	assert.True(t, ok)
	assert.Equal(t, editors.TextboxAlias, alias)

	require.NotNil(t, f.Plugins)
	assert.Same(t, env.CurrentPluginManager(), f.Plugins)

	require.NotNil(t, f.App)
	assert.True(t, f.App.Cache.Disabled())
	assert.True(t, f.App.IsConfigured())
	require.NoError(t, f.App.CheckAlive())

	assert.True(t, env.MapperInitialized())
	assert.True(t, mapper.Has[content.Content, mapping.ContentDisplay](f.Mappings()))

	assert.True(t, f.Resolver.IsFrozen())
	app, err := resolve.Get[*core.ApplicationContext](f.Resolver)
	require.NoError(t, err)
	assert.Same(t, f.App, app)
	assert.ErrorIs(t, f.Resolver.RegisterInstance("late", 1), resolve.ErrFrozen)

	require.NoError(t, f.Teardown())
}

func TestTeardownClearsFixture(t *testing.T) {
	env := newEnv(t)
	f := setup(t, env, harness.Options{
		Settings: func(s *settings.Settings) { s.Publishing.Compression = "zstd" },
	})
	app := f.App
	assert.Equal(t, "zstd", f.Settings.Get().Publishing.Compression)

	require.NoError(t, f.Teardown())

	assert.Nil(t, f.App)
	assert.ErrorIs(t, app.CheckAlive(), core.ErrDisposed)
	assert.Equal(t, settings.Defaults(), f.Settings.Get())

	ok, err := f.Content.DirectoriesExist()
	require.NoError(t, err)
	assert.False(t, ok)
	exists, err := afero.Exists(f.Content.GetFs(), settings.DefaultPath)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Zero(t, f.Legacy.Len())
	assert.False(t, f.Resolver.IsFrozen())
	assert.Empty(t, f.Resolver.Names())
	assert.NotNil(t, env.CurrentPluginManager(), "plugin manager kept by default")

	assert.True(t, f.IsTornDown())
	assert.NoError(t, f.Teardown(), "second teardown is a no-op")
}

type failingCloseCache struct {
	cache.Cache
	err error
}

func (c failingCloseCache) Close() error { return c.err }

func TestTeardownContinuesAfterFailure(t *testing.T) {
	env := newEnv(t)
	boom := errors.New("close boom")
	f := setup(t, env, harness.Options{
		ResetPluginManager: true,
		SetupApplicationContext: func(ctx context.Context, f *harness.Fixture) (*core.ApplicationContext, error) {
			app, err := harness.DefaultSetupApplicationContext(ctx, f)
			if err != nil {
				return nil, err
			}
			app.Cache.Runtime = failingCloseCache{Cache: app.Cache.Runtime, err: boom}
			return app, nil
		},
	})
	app := f.App

	err := f.Teardown()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dispose application context")

	assert.Nil(t, f.App)
	assert.ErrorIs(t, app.CheckAlive(), core.ErrDisposed)
	ok, err := f.Content.DirectoriesExist()
	require.NoError(t, err)
	assert.False(t, ok, "directories cleaned after the failed step")
	exists, err := afero.Exists(f.Content.GetFs(), settings.DefaultPath)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, env.CurrentPluginManager())
	assert.Zero(t, f.Legacy.Len())
	assert.False(t, f.Resolver.IsFrozen())
	assert.NoError(t, f.Teardown(), "second teardown is a no-op")
}

func TestLoggerFor(t *testing.T) {
	l := harness.LoggerFor(t)
	l.Debug().Str("fixture", "logger").Msg("routed through t.Log")
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())
}

func TestMapperInitializedOnce(t *testing.T) {
	env := newEnv(t)
	for i := 0; i < 3; i++ {
		f := setup(t, env, harness.Options{})
		require.NoError(t, f.Teardown())
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := env.Setup(context.Background(), harness.Options{})
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, f.Teardown())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, env.MapperRuns())
	assert.Equal(t, 3, env.Mappings().Len())
}

func TestPluginManagerPersistsAcrossFixtures(t *testing.T) {
	env := newEnv(t)

	f1 := setup(t, env, harness.Options{})
	first := f1.Plugins
	scans := first.ScanCount()
	require.NoError(t, f1.Teardown())

	f2 := setup(t, env, harness.Options{})
	defer f2.Teardown()

	assert.Same(t, first, f2.Plugins)
	assert.Equal(t, scans, f2.Plugins.ScanCount(), "second fixture served from the scan cache")
	assert.Equal(t, 1, env.PluginManagersCreated())
}

func TestResetPluginManagerOnTeardown(t *testing.T) {
	env := newEnv(t)

	f1 := setup(t, env, harness.Options{ResetPluginManager: true})
	first := f1.Plugins
	require.NoError(t, f1.Teardown())
	assert.Nil(t, env.CurrentPluginManager())
	assert.Nil(t, f1.Plugins)

	f2 := setup(t, env, harness.Options{})
	defer f2.Teardown()

	assert.NotSame(t, first, f2.Plugins)
	assert.Equal(t, 2, env.PluginManagersCreated())
	assert.Equal(t, 1, env.MapperRuns(), "mapper stays configured across plugin resets")
}

func TestHookOverrides(t *testing.T) {
	env := newEnv(t)
	private, err := plugin.NewManager(1, plugin.WithCatalogs(editors.Catalog(), mapping.Catalog()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = private.Close() })

	var order []string
	opts := harness.Options{
		SetupPluginManager: func(_ *harness.Environment, _ *harness.Fixture) (*plugin.Manager, error) {
			order = append(order, "plugins")
			return private, nil
		},
		SetupApplicationContext: func(ctx context.Context, f *harness.Fixture) (*core.ApplicationContext, error) {
			order = append(order, "app")
			app, err := harness.DefaultSetupApplicationContext(ctx, f)
			if err != nil {
				return nil, err
			}
			return app, app.Services.ContentTypes.Save(ctx, &content.ContentType{
				Alias:      "page",
				Name:       "Page",
				Properties: []content.PropertyType{{Alias: "title", EditorAlias: editors.LegacyTextboxID.String()}},
			})
		},
		FreezeResolution: func(f *harness.Fixture) error {
			order = append(order, "freeze")
			if err := f.Resolver.RegisterInstance("extra", 42); err != nil {
				return err
			}
			return harness.DefaultFreezeResolution(f)
		},
	}
	f := setup(t, env, opts)
	defer f.Teardown()

	assert.Equal(t, []string{"plugins", "app", "freeze"}, order)
	assert.Same(t, private, f.Plugins)
	assert.Nil(t, env.CurrentPluginManager(), "environment manager never built")

	ct, err := f.App.Services.ContentTypes.Get(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, editors.TextboxAlias, ct.Properties[0].EditorAlias)

	v, err := f.Resolver.Resolve("extra")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.Resolver.IsFrozen())
}

func TestSetupErrorTearsDownPartialFixture(t *testing.T) {
	env := newEnv(t)
	boom := errors.New("boom")
	var seen *harness.Fixture
	_, err := env.Setup(context.Background(), harness.Options{
		SetupApplicationContext: func(_ context.Context, f *harness.Fixture) (*core.ApplicationContext, error) {
			seen = f
			return nil, boom
		},
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, env.MapperInitialized())
	assert.Zero(t, env.MapperRuns())

	require.NotNil(t, seen)
	assert.True(t, seen.IsTornDown())
	ok, err := seen.Content.DirectoriesExist()
	require.NoError(t, err)
	assert.False(t, ok)

	f := setup(t, env, harness.Options{})
	defer f.Teardown()
	assert.True(t, env.MapperInitialized())
}

func TestOnDiskContent(t *testing.T) {
	dir := t.TempDir()
	env := newEnv(t)
	f := setup(t, env, harness.Options{ContentRoot: dir})

	_, err := os.Stat(filepath.Join(dir, fs.DirMedia))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, settings.DefaultPath))
	require.NoError(t, err)

	require.NoError(t, f.Teardown())
	_, err = os.Stat(filepath.Join(dir, fs.DirMedia))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, settings.DefaultPath))
	assert.True(t, os.IsNotExist(err))
}

func TestNewRegistersCleanup(t *testing.T) {
	env := newEnv(t)
	var f *harness.Fixture
	t.Run("inner", func(t *testing.T) {
		f = harness.New(t, env, harness.WithSettings(func(s *settings.Settings) { s.Debug = true }))
		assert.True(t, f.App.Settings.Debug)
	})
	assert.True(t, f.IsTornDown())
	assert.Nil(t, f.App)
}

type fixtureSuite struct {
	harness.Suite
	apps []*core.ApplicationContext
}

func (s *fixtureSuite) TestFirst()  { s.record() }
func (s *fixtureSuite) TestSecond() { s.record() }

func (s *fixtureSuite) record() {
	s.Require().NotNil(s.Fixture)
	s.Require().NotNil(s.Fixture.App)
	for _, prev := range s.apps {
		s.NotSame(prev, s.Fixture.App)
		s.ErrorIs(prev.CheckAlive(), core.ErrDisposed)
	}
	s.apps = append(s.apps, s.Fixture.App)
	s.Equal(1, s.Env.MapperRuns())
	s.Equal(1, s.Env.PluginManagersCreated())
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(fixtureSuite))
}
