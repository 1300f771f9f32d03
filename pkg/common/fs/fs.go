package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Standard content directories, relative to the content root.
const (
	DirMedia       = "media"
	DirCSS         = "css"
	DirScripts     = "scripts"
	DirViews       = "views"
	DirMasterPages = "masterpages"
	DirConfig      = "config"
	DirData        = "data"
	DirTemp        = "data/temp"
)

// StandardDirs lists the directories InitializeDirectories creates.
var StandardDirs = []string{DirMedia, DirCSS, DirScripts, DirViews, DirMasterPages, DirConfig, DirData, DirTemp}

// ContentFS wraps an afero filesystem rooted at the content root.
type ContentFS struct {
	fs   afero.Fs
	base string
}

// NewMemory returns a content filesystem backed by memory.
func NewMemory() *ContentFS {
	return &ContentFS{fs: afero.NewMemMapFs(), base: "/"}
}

// NewOnDisk returns a content filesystem rooted at base on the OS filesystem.
func NewOnDisk(base string) *ContentFS {
	return &ContentFS{fs: afero.NewBasePathFs(afero.NewOsFs(), base), base: base}
}

// New wraps an arbitrary afero filesystem.
func New(fsys afero.Fs, base string) *ContentFS {
	return &ContentFS{fs: fsys, base: base}
}

// GetFs returns the underlying afero filesystem. Paths are relative to the
// content root.
func (c *ContentFS) GetFs() afero.Fs { return c.fs }

// Base returns the content root as given at construction.
func (c *ContentFS) Base() string { return c.base }

// Path joins a content directory and a file name.
func (c *ContentFS) Path(dir, name string) string {
	return filepath.Join(dir, name)
}

// InitializeDirectories creates the standard directory tree.
func (c *ContentFS) InitializeDirectories() error {
	for _, dir := range StandardDirs {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create content directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanDirectories removes the standard directory tree and everything in it.
func (c *ContentFS) CleanDirectories() error {
	var errs []error
	for _, dir := range StandardDirs {
		if err := c.fs.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove content directory %s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

// DirectoriesExist reports whether every standard directory is present.
func (c *ContentFS) DirectoriesExist() (bool, error) {
	for _, dir := range StandardDirs {
		ok, err := afero.DirExists(c.fs, dir)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// WriteFile writes data, creating parent directories as needed.
func (c *ContentFS) WriteFile(name string, data []byte) error {
	if err := c.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", name, err)
	}
	return afero.WriteFile(c.fs, name, data, 0o644)
}

// ReadFile reads a file relative to the content root.
func (c *ContentFS) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(c.fs, name)
}

// Exists reports whether name exists.
func (c *ContentFS) Exists(name string) (bool, error) {
	return afero.Exists(c.fs, name)
}

// Remove deletes a file. A missing file is not an error.
func (c *ContentFS) Remove(name string) error {
	if err := c.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Rename moves a file, replacing the destination.
func (c *ContentFS) Rename(from, to string) error {
	if err := c.fs.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", to, err)
	}
	return c.fs.Rename(from, to)
}

// List returns the sorted file names in dir.
func (c *ContentFS) List(dir string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
