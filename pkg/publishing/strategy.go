// Package publishing implements the default publishing strategy: it stamps
// publish state on content and keeps a published-content cache file in the
// content filesystem.
package publishing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go4cms/pkg/common/compress"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/common/logger"
	"go4cms/pkg/content"
)

var ErrNotReleased = errors.New("content release date is in the future")

// Entry is one item in the published cache.
type Entry struct {
	ID          uint           `json:"id"`
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Properties  map[string]any `json:"properties"`
	PublishedAt time.Time      `json:"published_at"`
}

// Snapshot is the content of the published cache file.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Entry   `json:"items"`
}

// Strategy is the default content.PublishingStrategy.
type Strategy struct {
	cfs        *fs.ContentFS
	cacheFile  string
	compressor compress.Compressor
	now        func() time.Time
	log        zerolog.Logger

	mu sync.Mutex
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithCompression selects the cache file compression.
func WithCompression(ct compress.CompressionType) Option {
	return func(s *Strategy) { s.compressor = compress.NewCompressor(ct) }
}

// WithCacheFile sets the cache file path (without compression suffix).
func WithCacheFile(path string) Option { return func(s *Strategy) { s.cacheFile = path } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Strategy) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Strategy) { s.log = logger.WithComponent(l, "publishing") }
}

// New returns a strategy writing its cache file into cfs.
func New(cfs *fs.ContentFS, opts ...Option) *Strategy {
	s := &Strategy{
		cfs:        cfs,
		cacheFile:  "data/published.json",
		compressor: compress.NewNoneCompressor(),
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CachePath returns the cache file path including the compression suffix.
func (s *Strategy) CachePath() string {
	return s.cacheFile + s.compressor.Type().Extension()
}

// Publish implements content.PublishingStrategy.
func (s *Strategy) Publish(_ context.Context, c *content.Content) error {
	now := s.now()
	if c.ReleaseDate != nil && c.ReleaseDate.After(now) {
		return fmt.Errorf("publish %d: %w", c.ID, ErrNotReleased)
	}
	c.Published = true
	c.PublishedAt = &now
	return nil
}

// Unpublish implements content.PublishingStrategy.
func (s *Strategy) Unpublish(_ context.Context, c *content.Content) error {
	c.Published = false
	c.PublishedAt = nil
	return nil
}

// Finalize rewrites the published cache file from the published set.
func (s *Strategy) Finalize(_ context.Context, published []content.Content) error {
	snap := Snapshot{GeneratedAt: s.now().UTC(), Items: make([]Entry, 0, len(published))}
	for _, c := range published {
		e := Entry{ID: c.ID, Key: c.Key, Name: c.Name, Type: c.ContentTypeAlias, Properties: c.Properties}
		if c.PublishedAt != nil {
			e.PublishedAt = c.PublishedAt.UTC()
		}
		snap.Items = append(snap.Items, e)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode published cache: %w", err)
	}
	data, err := s.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress published cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cfs.WriteFile(s.CachePath(), data); err != nil {
		return fmt.Errorf("write published cache: %w", err)
	}
	s.log.Debug().Int("items", len(snap.Items)).Str("file", s.CachePath()).Msg("published cache written")
	return nil
}

// Snapshot reads the published cache file back. A missing file yields an
// empty snapshot.
func (s *Strategy) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	data, err := s.cfs.ReadFile(s.CachePath())
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read published cache: %w", err)
	}
	raw, err := compress.DecompressAuto(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress published cache: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode published cache: %w", err)
	}
	return snap, nil
}

var _ content.PublishingStrategy = (*Strategy)(nil)
