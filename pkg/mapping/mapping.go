// Package mapping holds the display models served over HTTP and the mapper
// configurations that build them from content models.
package mapping

import (
	"path/filepath"
	"sort"
	"time"

	"go4cms/pkg/common/file"
	"go4cms/pkg/content"
	"go4cms/pkg/core"
	"go4cms/pkg/mapper"
	"go4cms/pkg/plugin"
)

// CatalogName is the plugin catalog holding the mapping configurations.
const CatalogName = "mapping.core"

type ContentDisplay struct {
	ID          uint           `json:"id"`
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	ContentType string         `json:"content_type"`
	TypeName    string         `json:"type_name,omitempty"`
	Properties  []PropertyView `json:"properties"`
	Published   bool           `json:"published"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Version     int            `json:"version"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type PropertyView struct {
	Alias string `json:"alias"`
	Value any    `json:"value"`
}

type MediaDisplay struct {
	ID      uint   `json:"id"`
	Key     string `json:"key"`
	Name    string `json:"name"`
	MIME    string `json:"mime"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
	IsImage bool   `json:"is_image"`
}

type ContentTypeDisplay struct {
	Alias      string             `json:"alias"`
	Name       string             `json:"name"`
	Properties []PropertyTypeView `json:"properties"`
}

type PropertyTypeView struct {
	Alias     string `json:"alias"`
	Name      string `json:"name"`
	Editor    string `json:"editor"`
	Mandatory bool   `json:"mandatory"`
}

// ContentMappings maps content items. Properties are sorted by alias.
// TypeName is left for the caller, since mappings outlive the application
// context they were configured with.
type ContentMappings struct{}

func (ContentMappings) ConfigureMappings(r *mapper.Registry, _ *core.ApplicationContext) {
	mapper.CreateMap(r, func(c content.Content) (ContentDisplay, error) {
		d := ContentDisplay{
			ID:          c.ID,
			Key:         c.Key,
			Name:        c.Name,
			ContentType: c.ContentTypeAlias,
			Properties:  make([]PropertyView, 0, len(c.Properties)),
			Published:   c.Published,
			PublishedAt: c.PublishedAt,
			Version:     c.Version,
			UpdatedAt:   c.UpdatedAt,
		}
		for alias, v := range c.Properties {
			d.Properties = append(d.Properties, PropertyView{Alias: alias, Value: v})
		}
		sort.Slice(d.Properties, func(i, j int) bool { return d.Properties[i].Alias < d.Properties[j].Alias })
		return d, nil
	})
}

// MediaMappings maps media items to URLs relative to the site root.
type MediaMappings struct{}

func (MediaMappings) ConfigureMappings(r *mapper.Registry, _ *core.ApplicationContext) {
	mapper.CreateMap(r, func(m content.Media) (MediaDisplay, error) {
		return MediaDisplay{
			ID:      m.ID,
			Key:     m.Key,
			Name:    m.Name,
			MIME:    m.MIME,
			URL:     "/" + filepath.ToSlash(m.Path),
			Size:    m.Size,
			IsImage: file.IsImage(m.MIME),
		}, nil
	})
}

// ContentTypeMappings maps content types.
type ContentTypeMappings struct{}

func (ContentTypeMappings) ConfigureMappings(r *mapper.Registry, _ *core.ApplicationContext) {
	mapper.CreateMap(r, func(ct content.ContentType) (ContentTypeDisplay, error) {
		d := ContentTypeDisplay{Alias: ct.Alias, Name: ct.Name, Properties: make([]PropertyTypeView, 0, len(ct.Properties))}
		for _, p := range ct.Properties {
			d.Properties = append(d.Properties, PropertyTypeView{
				Alias:     p.Alias,
				Name:      p.Name,
				Editor:    p.EditorAlias,
				Mandatory: p.Mandatory,
			})
		}
		return d, nil
	})
}

// Catalog returns the mapping configurations for the plugin manager.
func Catalog() plugin.Catalog {
	return plugin.Catalog{Name: CatalogName, Types: []plugin.TypeInfo{
		plugin.Provide(func() ContentMappings { return ContentMappings{} }),
		plugin.Provide(func() MediaMappings { return MediaMappings{} }),
		plugin.Provide(func() ContentTypeMappings { return ContentTypeMappings{} }),
	}}
}

// Configure discovers every mapper.Configuration known to m and applies it
// to r.
func Configure(m *plugin.Manager, r *mapper.Registry, app *core.ApplicationContext) (int, error) {
	configs, err := plugin.FindAndCreateInstances[mapper.Configuration](m)
	if err != nil {
		return 0, err
	}
	for _, c := range configs {
		c.ConfigureMappings(r, app)
	}
	return len(configs), nil
}
