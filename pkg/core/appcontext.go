// Package core defines the application context: the aggregate that exposes
// database, services and caches of a running CMS instance.
package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/logger"
	"go4cms/pkg/common/settings"
	"go4cms/pkg/content"
	"go4cms/pkg/dbcontext"
)

var ErrDisposed = errors.New("application context disposed")

// ApplicationContext ties together the collaborators of one CMS instance.
type ApplicationContext struct {
	Database *dbcontext.Context
	Services *content.ServiceContext
	Cache    *cache.Helper
	Settings settings.Settings
	Log      zerolog.Logger

	mu       sync.Mutex
	disposed bool
	ready    bool
}

// New validates the parts and returns an application context.
func New(db *dbcontext.Context, services *content.ServiceContext, helper *cache.Helper, st settings.Settings, log zerolog.Logger) (*ApplicationContext, error) {
	var errs []error
	if db == nil {
		errs = append(errs, errors.New("database context is required"))
	}
	if services == nil {
		errs = append(errs, errors.New("service context is required"))
	}
	if helper == nil {
		errs = append(errs, errors.New("cache helper is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("application context: %w", err)
	}
	return &ApplicationContext{
		Database: db,
		Services: services,
		Cache:    helper,
		Settings: st,
		Log:      logger.WithComponent(log, "app"),
	}, nil
}

// IsConfigured reports whether the database can be opened.
func (a *ApplicationContext) IsConfigured() bool {
	return a.Database.IsConfigured()
}

// MarkReady flags the context as fully booted.
func (a *ApplicationContext) MarkReady() {
	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()
}

// IsReady reports whether boot completed and the context is not disposed.
func (a *ApplicationContext) IsReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready && !a.disposed
}

// CheckAlive returns ErrDisposed once Dispose has run.
func (a *ApplicationContext) CheckAlive() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return ErrDisposed
	}
	return nil
}

// Dispose releases the caches and closes the database. Later calls are
// no-ops.
func (a *ApplicationContext) Dispose() error {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil
	}
	a.disposed = true
	a.mu.Unlock()

	var errs []error
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := a.Database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	a.Log.Debug().Msg("application context disposed")
	return errors.Join(errs...)
}

// Close implements io.Closer.
func (a *ApplicationContext) Close() error { return a.Dispose() }
