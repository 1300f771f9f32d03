package content

import (
	"time"

	"gorm.io/gorm"
)

// PropertyType declares one property of a content type.
type PropertyType struct {
	Alias       string `json:"alias"`
	Name        string `json:"name"`
	EditorAlias string `json:"editor_alias"`
	Mandatory   bool   `json:"mandatory"`
}

// ContentType is the schema content items are created from.
type ContentType struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Alias      string         `gorm:"uniqueIndex;size:255" json:"alias"`
	Name       string         `json:"name"`
	Properties []PropertyType `gorm:"serializer:json" json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Property returns the property type with the given alias.
func (ct *ContentType) Property(alias string) (PropertyType, bool) {
	for _, p := range ct.Properties {
		if p.Alias == alias {
			return p, true
		}
	}
	return PropertyType{}, false
}

// Content is a content item.
type Content struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Key              string         `gorm:"uniqueIndex;size:36" json:"key"`
	Name             string         `json:"name"`
	ContentTypeAlias string         `gorm:"index" json:"content_type_alias"`
	Properties       map[string]any `gorm:"serializer:json" json:"properties"`
	Published        bool           `json:"published"`
	PublishedAt      *time.Time     `json:"published_at,omitempty"`
	ReleaseDate      *time.Time     `json:"release_date,omitempty"`
	Version          int            `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Media is an uploaded file.
type Media struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:36" json:"key"`
	Name      string    `json:"name"`
	MIME      string    `json:"mime"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	MD5       string    `gorm:"index" json:"md5"`
	CreatedAt time.Time `json:"created_at"`
}

// Template is a file-based view.
type Template struct {
	Alias   string `json:"alias"`
	Content string `json:"content"`
}

// Models lists the gorm models the content services need migrated.
func Models() []any {
	return []any{&ContentType{}, &Content{}, &Media{}}
}
