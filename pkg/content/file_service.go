package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go4cms/pkg/common/fs"
)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// FileService manages file-based templates and stylesheets.
type FileService struct {
	files *FileUnitOfWorkProvider
}

func templatePath(alias string) string  { return filepath.Join(fs.DirViews, alias+".html") }
func stylesheetPath(name string) string { return filepath.Join(fs.DirCSS, name+".css") }

// SaveTemplate writes a template.
func (s *FileService) SaveTemplate(_ context.Context, t Template) error {
	if !aliasPattern.MatchString(t.Alias) {
		return fmt.Errorf("template alias %q: %w", t.Alias, ErrInvalid)
	}
	uow := s.files.GetUnitOfWork()
	uow.Write(templatePath(t.Alias), []byte(t.Content))
	return uow.Commit()
}

// GetTemplate reads a template.
func (s *FileService) GetTemplate(_ context.Context, alias string) (*Template, error) {
	if !aliasPattern.MatchString(alias) {
		return nil, fmt.Errorf("template alias %q: %w", alias, ErrInvalid)
	}
	data, err := s.files.FS().ReadFile(templatePath(alias))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("template %s: %w", alias, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &Template{Alias: alias, Content: string(data)}, nil
}

// DeleteTemplate removes a template.
func (s *FileService) DeleteTemplate(_ context.Context, alias string) error {
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("template alias %q: %w", alias, ErrInvalid)
	}
	uow := s.files.GetUnitOfWork()
	uow.Delete(templatePath(alias))
	return uow.Commit()
}

// ListTemplates returns template aliases in sorted order.
func (s *FileService) ListTemplates(_ context.Context) ([]string, error) {
	names, err := s.files.FS().List(fs.DirViews)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasSuffix(n, ".html") {
			out = append(out, strings.TrimSuffix(n, ".html"))
		}
	}
	return out, nil
}

// SaveStylesheet writes a stylesheet.
func (s *FileService) SaveStylesheet(_ context.Context, name, css string) error {
	if !aliasPattern.MatchString(name) {
		return fmt.Errorf("stylesheet name %q: %w", name, ErrInvalid)
	}
	uow := s.files.GetUnitOfWork()
	uow.Write(stylesheetPath(name), []byte(css))
	return uow.Commit()
}
