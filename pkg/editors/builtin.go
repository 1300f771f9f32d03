package editors

import (
	"fmt"
	"strconv"
	"time"
)

// TextboxEditor is a single line of text.
type TextboxEditor struct {
	MaxLength int
}

func (*TextboxEditor) Alias() string { return TextboxAlias }
func (*TextboxEditor) Name() string  { return "Textbox" }

func (e *TextboxEditor) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", TextboxAlias, value)
	}
	if e.MaxLength > 0 && len(s) > e.MaxLength {
		return fmt.Errorf("%s: value longer than %d", TextboxAlias, e.MaxLength)
	}
	return nil
}

// TextareaEditor is multi-line text.
type TextareaEditor struct{}

func (*TextareaEditor) Alias() string { return TextareaAlias }
func (*TextareaEditor) Name() string  { return "Textarea" }

func (*TextareaEditor) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s: expected string, got %T", TextareaAlias, value)
	}
	return nil
}

// RichTextEditor holds HTML.
type RichTextEditor struct{}

func (*RichTextEditor) Alias() string { return RichTextAlias }
func (*RichTextEditor) Name() string  { return "Rich Text" }

func (*RichTextEditor) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s: expected string, got %T", RichTextAlias, value)
	}
	return nil
}

// BooleanEditor is a true/false toggle.
type BooleanEditor struct{}

func (*BooleanEditor) Alias() string { return BooleanAlias }
func (*BooleanEditor) Name() string  { return "True/False" }

func (*BooleanEditor) Validate(value any) error {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("%s: %w", BooleanAlias, err)
		}
		return nil
	default:
		return fmt.Errorf("%s: expected bool, got %T", BooleanAlias, value)
	}
}

// IntegerEditor is a whole number. JSON numbers arrive as float64.
type IntegerEditor struct{}

func (*IntegerEditor) Alias() string { return IntegerAlias }
func (*IntegerEditor) Name() string  { return "Numeric" }

func (*IntegerEditor) Validate(value any) error {
	switch v := value.(type) {
	case int, int32, int64:
		return nil
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("%s: %v is not a whole number", IntegerAlias, v)
		}
		return nil
	case string:
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("%s: %w", IntegerAlias, err)
		}
		return nil
	default:
		return fmt.Errorf("%s: expected number, got %T", IntegerAlias, value)
	}
}

// DateEditor accepts RFC 3339 timestamps or plain dates.
type DateEditor struct{}

func (*DateEditor) Alias() string { return DateAlias }
func (*DateEditor) Name() string  { return "Date Picker" }

func (*DateEditor) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", DateAlias, value)
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("%s: %w", DateAlias, err)
	}
	return nil
}
