package dbcontext

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Text string
}

func TestDBIsOpenedOnceAndMigrated(t *testing.T) {
	ctx := context.Background()
	c := New(NewSQLiteFactory(MemoryDSN()), zerolog.Nop(), &note{})
	defer c.Close()

	db1, err := c.DB(ctx)
	require.NoError(t, err)
	db2, err := c.DB(ctx)
	require.NoError(t, err)

	require.NoError(t, db1.Create(&note{Text: "a"}).Error)
	var count int64
	require.NoError(t, db2.Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFileDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cms.db")
	c := New(NewSQLiteFactory(dsn), zerolog.Nop(), &note{})
	_, err := c.DB(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, dsn)
	require.NoError(t, c.Close())
}

func TestNotConfigured(t *testing.T) {
	c := New(NewSQLiteFactory(""), zerolog.Nop())
	assert.False(t, c.IsConfigured())
	_, err := c.DB(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.False(t, New(nil, zerolog.Nop()).IsConfigured())
}

func TestCloseTwiceAndUseAfterClose(t *testing.T) {
	c := New(NewSQLiteFactory(MemoryDSN()), zerolog.Nop())
	_, err := c.DB(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err = c.DB(context.Background())
	assert.Error(t, err)
}

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()
	c := New(NewSQLiteFactory(MemoryDSN()), zerolog.Nop(), &note{})
	defer c.Close()
	p := NewUnitOfWorkProvider(c)

	require.NoError(t, p.Do(ctx, func(tx *gorm.DB) error { return tx.Create(&note{Text: "kept"}).Error }))

	boom := errors.New("boom")
	err := p.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&note{Text: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	db, err := c.DB(ctx)
	require.NoError(t, err)
	var notes []note
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "kept", notes[0].Text)

	uow, err := p.GetUnitOfWork(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	assert.Error(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}
