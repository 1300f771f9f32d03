package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go4cms/pkg/cache"
	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
)

// ContentService manages content items.
type ContentService struct {
	uow       *dbcontext.UnitOfWorkProvider
	types     *ContentTypeService
	editors   map[string]editors.PropertyEditor
	publisher PublishingStrategy
	cache     cache.Cache
	log       zerolog.Logger
}

func cacheKey(id uint) string { return "content:" + strconv.FormatUint(uint64(id), 10) }

// Create validates props against the content type and stores a new item.
func (s *ContentService) Create(ctx context.Context, typeAlias, name string, props map[string]any) (*Content, error) {
	c := &Content{Key: uuid.NewString(), Name: name, ContentTypeAlias: typeAlias, Properties: props, Version: 1}
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.Create(c).Error }); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	s.log.Debug().Uint("id", c.ID).Str("type", typeAlias).Msg("content created")
	return c, nil
}

func (s *ContentService) validate(ctx context.Context, c *Content) error {
	if c.Name == "" {
		return fmt.Errorf("content name: %w", ErrInvalid)
	}
	ct, err := s.types.Get(ctx, c.ContentTypeAlias)
	if err != nil {
		return err
	}
	for _, pt := range ct.Properties {
		v, ok := c.Properties[pt.Alias]
		if !ok {
			if pt.Mandatory {
				return fmt.Errorf("property %s is mandatory: %w", pt.Alias, ErrInvalid)
			}
			continue
		}
		editor, ok := s.editors[pt.EditorAlias]
		if !ok {
			return fmt.Errorf("property %s editor %s: %w", pt.Alias, pt.EditorAlias, ErrUnknownEditor)
		}
		if err := editor.Validate(v); err != nil {
			return fmt.Errorf("property %s: %w: %v", pt.Alias, ErrInvalid, err)
		}
	}
	for alias := range c.Properties {
		if _, ok := ct.Property(alias); !ok {
			return fmt.Errorf("property %s not on %s: %w", alias, ct.Alias, ErrInvalid)
		}
	}
	return nil
}

// Get returns the item with id, reading through the runtime cache.
func (s *ContentService) Get(ctx context.Context, id uint) (*Content, error) {
	var c Content
	if hit, err := s.cache.Get(cacheKey(id), &c); err != nil {
		s.log.Warn().Err(err).Uint("id", id).Msg("content cache read failed")
	} else if hit {
		return &c, nil
	}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.First(&c, id).Error })
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("content %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey(id), &c, 0); err != nil {
		s.log.Warn().Err(err).Uint("id", id).Msg("content cache write failed")
	}
	return &c, nil
}

// GetByKey returns the item with the given key.
func (s *ContentService) GetByKey(ctx context.Context, key string) (*Content, error) {
	var c Content
	err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.Where(&Content{Key: key}).First(&c).Error })
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("content %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every item ordered by id.
func (s *ContentService) List(ctx context.Context) ([]Content, error) {
	var out []Content
	err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.Order("id").Find(&out).Error })
	return out, err
}

// Save validates and updates an existing item, bumping its version.
func (s *ContentService) Save(ctx context.Context, c *Content) error {
	if err := s.validate(ctx, c); err != nil {
		return err
	}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var current Content
		if err := tx.First(&current, c.ID).Error; err != nil {
			return err
		}
		c.Version = current.Version + 1
		c.CreatedAt = current.CreatedAt
		return tx.Save(c).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("content %d: %w", c.ID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	s.evict(c.ID)
	return nil
}

// Delete removes the item. A published item is unpublished first.
func (s *ContentService) Delete(ctx context.Context, id uint) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Published {
		if err := s.Unpublish(ctx, id); err != nil {
			return err
		}
	}
	if err := s.uow.Do(ctx, func(tx *gorm.DB) error { return tx.Delete(&Content{}, id).Error }); err != nil {
		return err
	}
	s.evict(id)
	return nil
}

// Publish asks the publishing strategy to publish the item, persists the
// result and hands the published set back to the strategy.
func (s *ContentService) Publish(ctx context.Context, id uint) (*Content, error) {
	return s.changePublished(ctx, id, s.publisher.Publish)
}

// Unpublish withdraws a published item.
func (s *ContentService) Unpublish(ctx context.Context, id uint) error {
	_, err := s.changePublished(ctx, id, s.publisher.Unpublish)
	return err
}

func (s *ContentService) changePublished(ctx context.Context, id uint, change func(context.Context, *Content) error) (*Content, error) {
	s.evict(id)
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(ctx, c); err != nil {
		return nil, err
	}
	var published []Content
	err = s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&Content{}).Where("id = ?", id).
			Updates(map[string]any{"published": c.Published, "published_at": c.PublishedAt}).Error; err != nil {
			return err
		}
		return tx.Where("published = ?", true).Order("id").Find(&published).Error
	})
	if err != nil {
		return nil, err
	}
	s.evict(id)
	if err := s.publisher.Finalize(ctx, published); err != nil {
		return nil, fmt.Errorf("finalize publishing: %w", err)
	}
	return c, nil
}

func (s *ContentService) evict(id uint) {
	if err := s.cache.Delete(cacheKey(id)); err != nil {
		s.log.Warn().Err(err).Uint("id", id).Msg("content cache evict failed")
	}
}
