package dbcontext

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UnitOfWork is one database transaction.
type UnitOfWork struct {
	tx   *gorm.DB
	done bool
}

// DB returns the transaction handle.
func (u *UnitOfWork) DB() *gorm.DB { return u.tx }

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return errors.New("unit of work already completed")
	}
	u.done = true
	return u.tx.Commit().Error
}

// Rollback aborts the transaction. Rolling back a completed unit is a no-op.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}

// UnitOfWorkProvider opens transactions on a database context.
type UnitOfWorkProvider struct {
	db *Context
}

// NewUnitOfWorkProvider returns a provider over db.
func NewUnitOfWorkProvider(db *Context) *UnitOfWorkProvider {
	return &UnitOfWorkProvider{db: db}
}

// GetUnitOfWork begins a transaction.
func (p *UnitOfWorkProvider) GetUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	db, err := p.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin unit of work: %w", tx.Error)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Do runs fn inside a unit of work, committing on success.
func (p *UnitOfWorkProvider) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	uow, err := p.GetUnitOfWork(ctx)
	if err != nil {
		return err
	}
	if err := fn(uow.DB()); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}
