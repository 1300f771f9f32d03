package contentapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go4cms/pkg/common/file"
	"go4cms/pkg/content"
	"go4cms/pkg/mapper"
	"go4cms/pkg/mapping"
)

const maxUpload = 32 << 20

// uploadMedia stores the multipart field "file" as a media item.
func (h *handler) uploadMedia(c *gin.Context) {
	if !h.alive(c) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	fh, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer fh.Close()

	data, err := io.ReadAll(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}
	m, err := h.app.Services.Media.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := mapper.Map[content.Media, mapping.MediaDisplay](h.maps, *m)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().
		Str("filename", m.Name).
		Str("md5", m.MD5).
		Int64("size", m.Size).
		Str("mime", m.MIME).
		Msg("media uploaded")
	c.JSON(http.StatusCreated, d)
}

// downloadMedia streams the stored bytes of a media item.
func (h *handler) downloadMedia(c *gin.Context) {
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
	data, err := h.app.Services.Media.Open(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	disposition := "attachment"
	if file.IsImage(m.MIME) || strings.HasPrefix(m.MIME, "video/") || m.MIME == "application/pdf" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+"; filename="+strconv.Quote(m.Name))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, m.MIME, data)
}
