package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// DefaultPath is where the settings file lives relative to the content root.
const DefaultPath = "config/cms.settings.json"

// Database selects the database driver and connection string.
type Database struct {
	Driver string `json:"driver" mapstructure:"driver"`
	DSN    string `json:"dsn" mapstructure:"dsn"`
}

// Publishing controls how the published content cache is written.
type Publishing struct {
	Compression string `json:"compression" mapstructure:"compression"` // none, gzip or zstd
	CacheFile   string `json:"cache_file" mapstructure:"cache_file"`
}

// Settings represents the CMS configuration
type Settings struct {
	Debug                  bool       `json:"debug" mapstructure:"debug"`
	DisableCache           bool       `json:"disable_cache" mapstructure:"disable_cache"`
	DefaultRenderingEngine string     `json:"default_rendering_engine" mapstructure:"default_rendering_engine"`
	ContentRoot            string     `json:"content_root" mapstructure:"content_root"`
	Database               Database   `json:"database" mapstructure:"database"`
	Publishing             Publishing `json:"publishing" mapstructure:"publishing"`
	LogLevel               string     `json:"log_level" mapstructure:"log_level"`
}

// Defaults returns the settings used when no file overrides them.
func Defaults() Settings {
	return Settings{
		Debug:                  false,
		DisableCache:           false,
		DefaultRenderingEngine: "views",
		ContentRoot:            ".",
		Database:               Database{Driver: "sqlite"},
		Publishing:             Publishing{Compression: "gzip", CacheFile: "data/published.json"},
		LogLevel:               "info",
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("disable_cache", d.DisableCache)
	v.SetDefault("default_rendering_engine", d.DefaultRenderingEngine)
	v.SetDefault("content_root", d.ContentRoot)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("publishing.compression", d.Publishing.Compression)
	v.SetDefault("publishing.cache_file", d.Publishing.CacheFile)
	v.SetDefault("log_level", d.LogLevel)
}

// Store owns one settings file on an afero filesystem and the settings
// currently in effect.
type Store struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	v       *viper.Viper
	current Settings
}

// NewStore creates a store for the settings file at path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)
	return &Store{fs: fs, path: path, v: v, current: Defaults()}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// EnsureFile writes the defaults to the settings file unless it exists.
func (s *Store) EnsureFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("stat settings file: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write default settings: %w", err)
	}
	return nil
}

// Load reads the settings file. A missing file yields the defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			s.current = Defaults()
			return s.current, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var out Settings
	if err := s.v.Unmarshal(&out); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	s.current = out
	return out, nil
}

// Get returns the settings currently in effect.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set applies fn to the in-memory settings.
func (s *Store) Set(fn func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.current)
	return s.current
}

// Reset drops any in-memory overrides and returns to the defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = viper.New()
	s.v.SetFs(s.fs)
	s.v.SetConfigFile(s.path)
	s.v.SetConfigType("json")
	setDefaults(s.v)
	s.current = Defaults()
}

// Remove deletes the settings file. Removing a missing file is not an error.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove settings file: %w", err)
	}
	return nil
}
