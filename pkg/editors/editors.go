// Package editors defines property editors and the table mapping legacy
// editor ids to editor aliases.
package editors

import (
	"go4cms/pkg/plugin"
)

// Core editor aliases.
const (
	TextboxAlias       = "cms.textbox"
	TextareaAlias      = "cms.textarea"
	RichTextAlias      = "cms.richtext"
	BooleanAlias       = "cms.boolean"
	IntegerAlias       = "cms.integer"
	DateAlias          = "cms.date"
	DateTimeAlias      = "cms.datetime"
	ColorPickerAlias   = "cms.colorpicker"
	ContentPickerAlias = "cms.contentpicker"
	MediaPickerAlias   = "cms.mediapicker"
	DropdownAlias      = "cms.dropdown"
	TagsAlias          = "cms.tags"
	UploadAlias        = "cms.upload"
)

// PropertyEditor is the extension interface for property editors.
type PropertyEditor interface {
	Alias() string
	Name() string
	// Validate checks a raw property value.
	Validate(value any) error
}

// CatalogName is the plugin catalog holding the core editors.
const CatalogName = "editors.core"

// Catalog returns the core editors for the plugin manager.
func Catalog() plugin.Catalog {
	return plugin.Catalog{Name: CatalogName, Types: []plugin.TypeInfo{
		plugin.Provide(func() *TextboxEditor { return &TextboxEditor{MaxLength: 512} }),
		plugin.Provide(func() *TextareaEditor { return &TextareaEditor{} }),
		plugin.Provide(func() *RichTextEditor { return &RichTextEditor{} }),
		plugin.Provide(func() *BooleanEditor { return &BooleanEditor{} }),
		plugin.Provide(func() *IntegerEditor { return &IntegerEditor{} }),
		plugin.Provide(func() *DateEditor { return &DateEditor{} }),
	}}
}
