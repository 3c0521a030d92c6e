package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
)

// DownloadHandler serves the download history
type DownloadHandler struct {
	history *app.HistoryService
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(history *app.HistoryService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		history: history,
		logger:  logger,
	}
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	download, err := h.history.GetDownload(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, download)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.DownloadStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filters["status"] = status
	}
	if position := c.Query("position"); position != "" {
		p, err := domain.ParseMountPosition(position)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters["position"] = p
	}
	if index := c.Query("file_index"); index != "" {
		n, err := strconv.ParseUint(index, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file_index"})
			return
		}
		filters["file_index"] = uint32(n)
	}

	downloads, err := h.history.ListDownloads(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
