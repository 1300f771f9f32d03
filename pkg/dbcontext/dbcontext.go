// Package dbcontext owns the database connection of an application context
// and hands out units of work over it.
package dbcontext

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go4cms/pkg/common/logger"
)

var ErrNotConfigured = errors.New("database is not configured")

// Factory opens the underlying gorm connection.
type Factory interface {
	Open(ctx context.Context) (*gorm.DB, error)
}

// SQLiteFactory opens a sqlite database.
type SQLiteFactory struct {
	DSN string
}

// NewSQLiteFactory returns a factory for dsn.
func NewSQLiteFactory(dsn string) *SQLiteFactory {
	return &SQLiteFactory{DSN: dsn}
}

// MemoryDSN returns a DSN for a private in-memory database. Connections
// opened with the same DSN share the database.
func MemoryDSN() string {
	return fmt.Sprintf("file:cms-%s?mode=memory&cache=shared", uuid.NewString())
}

// Open implements Factory.
func (f *SQLiteFactory) Open(ctx context.Context) (*gorm.DB, error) {
	if f.DSN == "" {
		return nil, ErrNotConfigured
	}
	db, err := gorm.Open(sqlite.Open(f.DSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open db failed: %w", err)
	}
	return db.WithContext(ctx), nil
}

// Context is the database context: a lazily opened connection plus the
// models it migrates on open.
type Context struct {
	factory Factory
	models  []any
	log     zerolog.Logger

	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// New creates a database context. models are auto-migrated on first open.
func New(factory Factory, log zerolog.Logger, models ...any) *Context {
	return &Context{factory: factory, models: models, log: logger.WithComponent(log, "database")}
}

// IsConfigured reports whether the context has a factory to open from.
func (c *Context) IsConfigured() bool {
	if c.factory == nil {
		return false
	}
	if f, ok := c.factory.(*SQLiteFactory); ok {
		return f.DSN != ""
	}
	return true
}

// DB returns the connection, opening and migrating it on first call.
func (c *Context) DB(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("database context closed")
	}
	if c.db != nil {
		return c.db.WithContext(ctx), nil
	}
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	db, err := c.factory.Open(ctx)
	if err != nil {
		return nil, err
	}
	if len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}
	c.db = db
	c.log.Debug().Int("models", len(c.models)).Msg("database opened")
	return db.WithContext(ctx), nil
}

// Migrate adds models to the schema, opening the connection if needed.
func (c *Context) Migrate(ctx context.Context, models ...any) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	c.mu.Lock()
	c.models = append(c.models, models...)
	c.mu.Unlock()
	return nil
}

// Close closes the connection if it was opened. It is safe to call twice.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	c.db = nil
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}
