package content_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go4cms/pkg/cache"
	"go4cms/pkg/common/compress"
	"go4cms/pkg/common/fs"
	"go4cms/pkg/content"
	"go4cms/pkg/dbcontext"
	"go4cms/pkg/editors"
	"go4cms/pkg/publishing"
)

type env struct {
	svc       *content.ServiceContext
	cfs       *fs.ContentFS
	publisher *publishing.Strategy
	cache     *cache.Helper
}

func newEnv(t *testing.T, helper *cache.Helper) *env {
	t.Helper()
	cfs := fs.NewMemory()
	require.NoError(t, cfs.InitializeDirectories())

	db := dbcontext.New(dbcontext.NewSQLiteFactory(dbcontext.MemoryDSN()), zerolog.Nop(), content.Models()...)
	t.Cleanup(func() { _ = db.Close() })

	legacy := editors.NewLegacyMap()
	require.NoError(t, legacy.CreateMappingsForCoreEditors())

	pub := publishing.New(cfs, publishing.WithCompression(compress.Gzip))
	svc, err := content.NewServiceContext(content.Deps{
		Database:  dbcontext.NewUnitOfWorkProvider(db),
		Files:     content.NewFileUnitOfWorkProvider(cfs),
		Publisher: pub,
		Cache:     helper,
		Editors:   []editors.PropertyEditor{&editors.TextboxEditor{MaxLength: 64}, &editors.RichTextEditor{}, &editors.IntegerEditor{}},
		Legacy:    legacy,
		Log:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return &env{svc: svc, cfs: cfs, publisher: pub, cache: helper}
}

func saveArticleType(t *testing.T, e *env) {
	t.Helper()
	require.NoError(t, e.svc.ContentTypes.Save(context.Background(), &content.ContentType{
		Alias: "article",
		Name:  "Article",
		Properties: []content.PropertyType{
			{Alias: "title", EditorAlias: editors.TextboxAlias, Mandatory: true},
			{Alias: "body", EditorAlias: editors.LegacyRichTextID.String()},
			{Alias: "rank", EditorAlias: editors.IntegerAlias},
		},
	}))
}

func TestNewServiceContextRequiresDeps(t *testing.T) {
	_, err := content.NewServiceContext(content.Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing strategy is required")
}

func TestContentTypeSave(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())
	saveArticleType(t, e)

	ct, err := e.svc.ContentTypes.Get(ctx, "article")
	require.NoError(t, err)
	body, ok := ct.Property("body")
	require.True(t, ok)
	assert.Equal(t, editors.RichTextAlias, body.EditorAlias, "legacy id rewritten to alias")

	ct.Name = "News Article"
	require.NoError(t, e.svc.ContentTypes.Save(ctx, ct))
	all, err := e.svc.ContentTypes.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "News Article", all[0].Name)

	err = e.svc.ContentTypes.Save(ctx, &content.ContentType{Alias: "bad", Properties: []content.PropertyType{{Alias: "x", EditorAlias: "acme.unknown"}}})
	assert.ErrorIs(t, err, content.ErrUnknownEditor)

	_, err = e.svc.ContentTypes.Get(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrUnknownType)
}

func TestContentCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())
	saveArticleType(t, e)

	c, err := e.svc.Content.Create(ctx, "article", "Hello", map[string]any{"title": "Hello", "rank": 1})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Len(t, c.Key, 36)

	byKey, err := e.svc.Content.GetByKey(ctx, c.Key)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byKey.ID)

	_, err = e.svc.Content.Create(ctx, "article", "No title", map[string]any{})
	assert.ErrorIs(t, err, content.ErrInvalid)
	_, err = e.svc.Content.Create(ctx, "article", "Long", map[string]any{"title": strings.Repeat("x", 65)})
	assert.ErrorIs(t, err, content.ErrInvalid)
	_, err = e.svc.Content.Create(ctx, "article", "Extra", map[string]any{"title": "x", "color": "red"})
	assert.ErrorIs(t, err, content.ErrInvalid)
	_, err = e.svc.Content.Create(ctx, "page", "Wrong type", nil)
	assert.ErrorIs(t, err, content.ErrUnknownType)
}

func TestContentSaveBumpsVersionAndEvictsCache(t *testing.T) {
	ctx := context.Background()
	helper := cache.NewHelper(cache.Options{})
	t.Cleanup(func() { _ = helper.Close() })
	e := newEnv(t, helper)
	saveArticleType(t, e)

	c, err := e.svc.Content.Create(ctx, "article", "Hello", map[string]any{"title": "Hello"})
	require.NoError(t, err)

	got, err := e.svc.Content.Get(ctx, c.ID)
	require.NoError(t, err)
	var cached content.Content
	hit, err := helper.Runtime.Get("content:1", &cached)
	require.NoError(t, err)
	assert.True(t, hit, "Get fills the runtime cache")

	got.Properties["title"] = "Hello again"
	require.NoError(t, e.svc.Content.Save(ctx, got))
	assert.Equal(t, 2, got.Version)

	hit, err = helper.Runtime.Get("content:1", &cached)
	require.NoError(t, err)
	assert.False(t, hit, "Save evicts the cached item")

	reloaded, err := e.svc.Content.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", reloaded.Properties["title"])

	missing := &content.Content{ID: 99, Name: "x", ContentTypeAlias: "article", Properties: map[string]any{"title": "x"}}
	assert.ErrorIs(t, e.svc.Content.Save(ctx, missing), content.ErrNotFound)
}

func TestPublishWritesCacheFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())
	saveArticleType(t, e)

	a, err := e.svc.Content.Create(ctx, "article", "A", map[string]any{"title": "A"})
	require.NoError(t, err)
	b, err := e.svc.Content.Create(ctx, "article", "B", map[string]any{"title": "B"})
	require.NoError(t, err)

	published, err := e.svc.Content.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	_, err = e.svc.Content.Publish(ctx, b.ID)
	require.NoError(t, err)

	exists, err := e.cfs.Exists("data/published.json.gz")
	require.NoError(t, err)
	assert.True(t, exists)

	snap, err := e.publisher.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "A", snap.Items[0].Name)

	require.NoError(t, e.svc.Content.Delete(ctx, a.ID))
	snap, err = e.publisher.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "B", snap.Items[0].Name)

	_, err = e.svc.Content.Get(ctx, a.ID)
	assert.ErrorIs(t, err, content.ErrNotFound)
	all, err := e.svc.Content.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPublishRespectsReleaseDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())
	saveArticleType(t, e)

	c, err := e.svc.Content.Create(ctx, "article", "Later", map[string]any{"title": "Later"})
	require.NoError(t, err)
	future := time.Now().Add(time.Hour)
	c.ReleaseDate = &future
	require.NoError(t, e.svc.Content.Save(ctx, c))

	_, err = e.svc.Content.Publish(ctx, c.ID)
	assert.ErrorIs(t, err, publishing.ErrNotReleased)
}

func TestMediaUpload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	m, err := e.svc.Media.Upload(ctx, "logo.png", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", m.MIME)
	assert.True(t, strings.HasPrefix(m.Path, "media/"))

	data, err := e.svc.Media.Open(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	same, err := e.svc.Media.FindByMD5(ctx, m.MD5)
	require.NoError(t, err)
	assert.Len(t, same, 1)

	_, err = e.svc.Media.Upload(ctx, "../escape.png", png)
	assert.ErrorIs(t, err, content.ErrInvalid)
	_, err = e.svc.Media.Get(ctx, 42)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, cache.NewDisabledHelper())

	require.NoError(t, e.svc.Files.SaveTemplate(ctx, content.Template{Alias: "home", Content: "<h1>{{.Name}}</h1>"}))
	require.NoError(t, e.svc.Files.SaveTemplate(ctx, content.Template{Alias: "article", Content: "<article/>"}))
	require.NoError(t, e.svc.Files.SaveStylesheet(ctx, "site", "body{}"))

	tpl, err := e.svc.Files.GetTemplate(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "<h1>{{.Name}}</h1>", tpl.Content)

	names, err := e.svc.Files.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"article", "home"}, names)

	require.NoError(t, e.svc.Files.DeleteTemplate(ctx, "home"))
	_, err = e.svc.Files.GetTemplate(ctx, "home")
	assert.ErrorIs(t, err, content.ErrNotFound)

	assert.ErrorIs(t, e.svc.Files.SaveTemplate(ctx, content.Template{Alias: "../x"}), content.ErrInvalid)

	temp, err := e.cfs.List(fs.DirTemp)
	require.NoError(t, err)
	assert.Empty(t, temp, "staged files are renamed out of the temp directory")
}
