package exports

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/exports/drivers"
)

type HTTPHandler struct {
	Service *ExportService
}

func NewHTTPHandler(service *ExportService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Download streams a previously exported file. The route must carry a :key parameter.
func (h *HTTPHandler) Download(c *gin.Context) {
	key := c.Param("key")
	if !ValidKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export key"})
		return
	}

	reader, contentType, err := h.Service.Download(c.Request.Context(), key)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "export not found", "key", key, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", drivers.AttachmentDisposition(key))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		slog.WarnContext(c.Request.Context(), "failed to stream export", "key", key, "error", err)
	}
}
