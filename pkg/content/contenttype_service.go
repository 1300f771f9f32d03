package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
)

// ContentTypeService manages content types.
type ContentTypeService struct {
	uow     *dbcontext.UnitOfWorkProvider
	editors map[string]editors.PropertyEditor
	legacy  *editors.LegacyMap
	log     zerolog.Logger
}

// Save creates or updates ct by alias. Property editors given as legacy ids
// are rewritten to their alias; unknown editors are rejected.
func (s *ContentTypeService) Save(ctx context.Context, ct *ContentType) error {
	if ct.Alias == "" {
		return fmt.Errorf("content type alias: %w", ErrInvalid)
	}
	for i := range ct.Properties {
		p := &ct.Properties[i]
		p.EditorAlias = s.legacy.ResolveAlias(p.EditorAlias)
		if _, ok := s.editors[p.EditorAlias]; !ok {
			return fmt.Errorf("property %s editor %s: %w", p.Alias, p.EditorAlias, ErrUnknownEditor)
		}
	}
	return s.uow.Do(ctx, func(tx *gorm.DB) error {
		var existing ContentType
		err := tx.Where("alias = ?", ct.Alias).First(&existing).Error
		switch {
		case err == nil:
			ct.ID = existing.ID
			ct.CreatedAt = existing.CreatedAt
			return tx.Save(ct).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(ct).Error
		default:
			return err
		}
	})
}

// Get returns the content type with alias.
func (s *ContentTypeService) Get(ctx context.Context, alias string) (*ContentType, error) {
	var ct ContentType
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("alias = ?", alias).First(&ct).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("content type %s: %w", alias, ErrUnknownType)
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// List returns every content type ordered by alias.
func (s *ContentTypeService) List(ctx context.Context) ([]ContentType, error) {
	var out []ContentType
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		return tx.Order("alias").Find(&out).Error
	})
	return out, err
}
