// Package contentapi exposes content, media and system endpoints over gin.
package contentapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go4cms/pkg/common/logger"
	"go4cms/pkg/content"
	"go4cms/pkg/core"
	"go4cms/pkg/editors"
	"go4cms/pkg/mapper"
	"go4cms/pkg/mapping"
	"go4cms/pkg/plugin"
	"go4cms/pkg/publishing"
)

type handler struct {
	app     *core.ApplicationContext
	maps    *mapper.Registry
	plugins *plugin.Manager
	log     zerolog.Logger
}

// Register mounts the routes on rg.
func Register(rg *gin.RouterGroup, app *core.ApplicationContext, maps *mapper.Registry, plugins *plugin.Manager) {
	h := &handler{app: app, maps: maps, plugins: plugins, log: zerolog.Nop()}
	if app != nil {
		h.log = logger.WithComponent(app.Log, "contentapi")
	}
	rg.GET("/content", h.listContent)
	rg.GET("/content/:id", h.getContent)
	rg.POST("/content/:id/publish", h.publishContent)
	rg.POST("/content/:id/unpublish", h.unpublishContent)
	rg.GET("/content-types", h.listContentTypes)
	rg.POST("/media", h.uploadMedia)
	rg.GET("/media/:id", h.getMedia)
	rg.GET("/media/:id/raw", h.downloadMedia)

	sys := rg.Group("/system")
	sys.GET("/plugins", h.listPlugins)
	sys.GET("/pool", h.poolStats)
}

func (h *handler) alive(c *gin.Context) bool {
	if h.app == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "application context not available"})
		return false
	}
	if err := h.app.CheckAlive(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (h *handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, publishing.ErrNotReleased), errors.Is(err, content.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// display maps c and fills in the content type name.
func (h *handler) display(c *gin.Context, item content.Content, names map[string]string) (mapping.ContentDisplay, error) {
	d, err := mapper.Map[content.Content, mapping.ContentDisplay](h.maps, item)
	if err != nil {
		return d, err
	}
	name, ok := names[item.ContentTypeAlias]
	if !ok {
		ct, err := h.app.Services.ContentTypes.Get(c.Request.Context(), item.ContentTypeAlias)
		switch {
		case err == nil:
			name = ct.Name
		case !errors.Is(err, content.ErrNotFound):
			return d, err
		}
		names[item.ContentTypeAlias] = name
	}
	d.TypeName = name
	return d, nil
}

func (h *handler) listContent(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	items, err := h.app.Services.Content.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	names := make(map[string]string)
	out := make([]mapping.ContentDisplay, 0, len(items))
	for _, item := range items {
		d, err := h.display(c, item, names)
		if err != nil {
			h.fail(c, err)
			return
		}
		out = append(out, d)
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func (h *handler) getContent(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.app.Services.Content.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := h.display(c, *item, map[string]string{})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) publishContent(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.app.Services.Content.Publish(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := h.display(c, *item, map[string]string{})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) unpublishContent(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.app.Services.Content.Unpublish(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listContentTypes(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	types, err := h.app.Services.ContentTypes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := mapper.MapSlice[content.ContentType, mapping.ContentTypeDisplay](h.maps, types)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func (h *handler) getMedia(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.app.Services.Media.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := mapper.Map[content.Media, mapping.MediaDisplay](h.maps, *m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type pluginView struct {
	Name    string `json:"name"`
	Catalog string `json:"catalog"`
}

func views(types []plugin.TypeInfo) []pluginView {
	out := make([]pluginView, 0, len(types))
	for _, ti := range types {
		out = append(out, pluginView{Name: ti.Name, Catalog: ti.Catalog})
	}
	return out
}

func (h *handler) pluginsReady(c *gin.Context) bool {
	if h.plugins == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "plugin manager not available"})
		return false
	}
	return true
}

func (h *handler) listPlugins(c *gin.Context) {
	if !h.pluginsReady(c) {
		return
	}
	eds, err := plugin.ResolveTypesOf[editors.PropertyEditor](h.plugins)
	if err != nil {
		h.fail(c, err)
		return
	}
	maps, err := plugin.ResolveTypesOf[mapper.Configuration](h.plugins)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"catalogs": h.plugins.Catalogs(),
		"editors":  views(eds),
		"mappings": views(maps),
		"scans":    h.plugins.ScanCount(),
	})
}

func (h *handler) poolStats(c *gin.Context) {
	if !h.pluginsReady(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"pool": h.plugins.PoolStats()})
}
