package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
)

// FilesHandler handles media listing requests
type FilesHandler struct {
	catalog *app.Catalog
	logger  *zap.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(catalog *app.Catalog, logger *zap.Logger) *FilesHandler {
	return &FilesHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ReplaceFilesRequest carries a camera's complete media listing
type ReplaceFilesRequest struct {
	Files []domain.MediaFileDescriptor `json:"files" binding:"required"`
}

// ListFiles handles GET /api/v1/positions/:position/files
func (h *FilesHandler) ListFiles(c *gin.Context) {
	position, err := domain.ParseMountPosition(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.catalog.Files(position))
}

// ReplaceFiles handles PUT /api/v1/positions/:position/files
func (h *FilesHandler) ReplaceFiles(c *gin.Context) {
	position, err := domain.ParseMountPosition(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ReplaceFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.catalog.Replace(position, req.Files); err != nil {
		h.logger.Warn("Media listing rejected",
			zap.Stringer("position", position),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"position": position,
		"count":    len(req.Files),
	})
}
