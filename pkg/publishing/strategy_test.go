package publishing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go4cms/pkg/common/compress"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/content"
)

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestPublishStampsContent(t *testing.T) {
	s := New(fs.NewMemory(), WithClock(fixedClock))
	c := &content.Content{ID: 1}

	require.NoError(t, s.Publish(context.Background(), c))
	assert.True(t, c.Published)
	require.NotNil(t, c.PublishedAt)
	assert.Equal(t, fixedClock(), *c.PublishedAt)

	require.NoError(t, s.Unpublish(context.Background(), c))
	assert.False(t, c.Published)
	assert.Nil(t, c.PublishedAt)
}

func TestPublishHonoursReleaseDate(t *testing.T) {
	s := New(fs.NewMemory(), WithClock(fixedClock))
	later := fixedClock().Add(time.Hour)
	c := &content.Content{ID: 2, ReleaseDate: &later}
	assert.ErrorIs(t, s.Publish(context.Background(), c), ErrNotReleased)
	assert.False(t, c.Published)

	earlier := fixedClock().Add(-time.Hour)
	c.ReleaseDate = &earlier
	assert.NoError(t, s.Publish(context.Background(), c))
}

func TestFinalizeRoundTrip(t *testing.T) {
	for _, ct := range []compress.CompressionType{compress.None, compress.Gzip, compress.Zstd} {
		t.Run(ct.String(), func(t *testing.T) {
			cfs := fs.NewMemory()
			s := New(cfs, WithCompression(ct), WithCacheFile("data/site.json"), WithClock(fixedClock))
			assert.Equal(t, "data/site.json"+ct.Extension(), s.CachePath())

			empty, err := s.Snapshot()
			require.NoError(t, err)
			assert.Empty(t, empty.Items)

			at := fixedClock()
			require.NoError(t, s.Finalize(context.Background(), []content.Content{
				{ID: 1, Key: "a", Name: "A", ContentTypeAlias: "page", PublishedAt: &at, Properties: map[string]any{"title": "A"}},
			}))

			raw, err := cfs.ReadFile(s.CachePath())
			require.NoError(t, err)
			assert.Equal(t, ct, compress.IsCompressed(raw))

			snap, err := s.Snapshot()
			require.NoError(t, err)
			require.Len(t, snap.Items, 1)
			assert.Equal(t, "page", snap.Items[0].Type)
			assert.Equal(t, "A", snap.Items[0].Properties["title"])
			assert.Equal(t, at, snap.Items[0].PublishedAt)
			assert.Equal(t, fixedClock(), snap.GeneratedAt)
		})
	}
}
