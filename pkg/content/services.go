// Package content holds the content models and the services that persist
// them.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/logger"
	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownType   = errors.New("unknown content type")
	ErrUnknownEditor = errors.New("unknown property editor")
	ErrInvalid       = errors.New("invalid value")
)

// PublishingStrategy decides whether content may be published and reacts
// once a publish or unpublish has been committed.
type PublishingStrategy interface {
	// Publish validates c and marks it published.
	Publish(ctx context.Context, c *Content) error
	// Unpublish marks c unpublished.
	Unpublish(ctx context.Context, c *Content) error
	// Finalize receives every published item after a change is committed.
	Finalize(ctx context.Context, published []Content) error
}

// Deps are the collaborators a ServiceContext is built from.
type Deps struct {
	Database  *dbcontext.UnitOfWorkProvider
	Files     *FileUnitOfWorkProvider
	Publisher PublishingStrategy
	Cache     *cache.Helper
	Editors   []editors.PropertyEditor
	Legacy    *editors.LegacyMap
	Log       zerolog.Logger
}

func (d Deps) validate() error {
	var errs []error
	if d.Database == nil {
		errs = append(errs, errors.New("database unit of work provider is required"))
	}
	if d.Files == nil {
		errs = append(errs, errors.New("file unit of work provider is required"))
	}
	if d.Publisher == nil {
		errs = append(errs, errors.New("publishing strategy is required"))
	}
	if d.Cache == nil {
		errs = append(errs, errors.New("cache helper is required"))
	}
	return errors.Join(errs...)
}

// ServiceContext is the service façade of an application context.
type ServiceContext struct {
	Content      *ContentService
	ContentTypes *ContentTypeService
	Media        *MediaService
	Files        *FileService
}

// NewServiceContext wires the services over deps.
func NewServiceContext(deps Deps) (*ServiceContext, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("service context: %w", err)
	}
	if deps.Legacy == nil {
		deps.Legacy = editors.NewLegacyMap()
	}
	known := make(map[string]editors.PropertyEditor, len(deps.Editors))
	for _, e := range deps.Editors {
		known[e.Alias()] = e
	}
	log := logger.WithComponent(deps.Log, "services")

	types := &ContentTypeService{uow: deps.Database, editors: known, legacy: deps.Legacy, log: log}
	return &ServiceContext{
		Content: &ContentService{
			uow:       deps.Database,
			types:     types,
			editors:   known,
			publisher: deps.Publisher,
			cache:     deps.Cache.Runtime,
			log:       log,
		},
		ContentTypes: types,
		Media:        &MediaService{uow: deps.Database, files: deps.Files, log: log},
		Files:        &FileService{files: deps.Files},
	}, nil
}
