package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/compress"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/common/settings"
	"go4cms/pkg/content"
	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
	"go4cms/pkg/publishing"
)

// BuildOptions are the inputs of Build. Nil fields get defaults derived
// from Settings.
type BuildOptions struct {
	Settings  settings.Settings
	Content   *fs.ContentFS
	Database  dbcontext.Factory
	Cache     *cache.Helper
	Publisher content.PublishingStrategy
	Editors   []editors.PropertyEditor
	Legacy    *editors.LegacyMap
	Log       zerolog.Logger
}

// Build assembles an application context: database context, cache helper,
// publishing strategy and service context.
func Build(ctx context.Context, o BuildOptions) (*ApplicationContext, error) {
	if o.Content == nil {
		return nil, fmt.Errorf("application context: content filesystem is required")
	}
	if o.Database == nil {
		o.Database = dbcontext.NewSQLiteFactory(o.Settings.Database.DSN)
	}
	if o.Publisher == nil {
		ct, err := compress.ParseType(o.Settings.Publishing.Compression)
		if err != nil {
			return nil, fmt.Errorf("publishing settings: %w", err)
		}
		opts := []publishing.Option{publishing.WithCompression(ct), publishing.WithLogger(o.Log)}
		if o.Settings.Publishing.CacheFile != "" {
			opts = append(opts, publishing.WithCacheFile(o.Settings.Publishing.CacheFile))
		}
		o.Publisher = publishing.New(o.Content, opts...)
	}
	if o.Cache == nil {
		if o.Settings.DisableCache {
			o.Cache = cache.NewDisabledHelper()
		} else {
			o.Cache = cache.NewHelper(cache.Options{})
		}
	}

	db := dbcontext.New(o.Database, o.Log, content.Models()...)
	services, err := content.NewServiceContext(content.Deps{
		Database:  dbcontext.NewUnitOfWorkProvider(db),
		Files:     content.NewFileUnitOfWorkProvider(o.Content),
		Publisher: o.Publisher,
		Cache:     o.Cache,
		Editors:   o.Editors,
		Legacy:    o.Legacy,
		Log:       o.Log,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app, err := New(db, services, o.Cache, o.Settings, o.Log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if db.IsConfigured() {
		if _, err := db.DB(ctx); err != nil {
			_ = app.Dispose()
			return nil, fmt.Errorf("open database: %w", err)
		}
	}
	return app, nil
}
