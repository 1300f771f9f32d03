package content

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go4cms/pkg/common/file"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/dbcontext"
)

// MediaService stores uploaded files in the media directory.
type MediaService struct {
	uow   *dbcontext.UnitOfWorkProvider
	files *FileUnitOfWorkProvider
	log   zerolog.Logger
}

// Upload sniffs the MIME type, writes data under media/<key>/ and records
// the metadata. The file is only committed once the record is stored.
func (s *MediaService) Upload(ctx context.Context, name string, data []byte) (*Media, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("media name %q: %w", name, ErrInvalid)
	}
	key := uuid.NewString()
	m := &Media{
		Key:  key,
		Name: name,
		MIME: file.DetectMIME(data, name),
		Path: filepath.Join(fs.DirMedia, key, name),
		Size: int64(len(data)),
		MD5:  file.MD5Sum(data),
	}

	fuow := s.files.GetUnitOfWork()
	fuow.Write(m.Path, data)

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return fuow.Commit()
	})
	if err != nil {
		fuow.Rollback()
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	s.log.Debug().Str("name", name).Str("mime", m.MIME).Int64("size", m.Size).Msg("media uploaded")
	return m, nil
}

// Get returns media metadata by id.
func (s *MediaService) Get(ctx context.Context, id uint) (*Media, error) {
	var m Media
	err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.First(&m, id).Error })
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Open returns the stored bytes of a media item.
func (s *MediaService) Open(ctx context.Context, id uint) ([]byte, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.files.FS().ReadFile(m.Path)
}

// FindByMD5 returns media items with the given checksum.
func (s *MediaService) FindByMD5(ctx context.Context, sum string) ([]Media, error) {
	var out []Media
	err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.Where("md5 = ?", sum).Order("id").Find(&out).Error })
	return out, err
}
