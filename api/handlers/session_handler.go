package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
)

// SessionHandler exposes the per-position session managers over HTTP
type SessionHandler struct {
	registry       *app.Registry
	maxPacketBytes int64
	logger         *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *app.Registry, maxPacketBytes int, logger *zap.Logger) *SessionHandler {
	if maxPacketBytes <= 0 {
		maxPacketBytes = domain.DefaultMaxPacketBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		registry:       registry,
		maxPacketBytes: int64(maxPacketBytes),
		logger:         logger,
	}
}

// PacketResponse reports how a packet was handled
type PacketResponse struct {
	Code  string              `json:"code"`
	Value int                 `json:"value"`
	OK    bool                `json:"ok"`
	State app.SessionSnapshot `json:"session"`
}

// AbortRequest represents a request to abort the active session
type AbortRequest struct {
	FileIndex *uint32 `json:"file_index" binding:"required"`
}

// ListPositions handles GET /api/v1/positions
func (h *SessionHandler) ListPositions(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Snapshots())
}

// GetSession handles GET /api/v1/positions/:position/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, manager.Snapshot())
}

// AbortSession handles POST /api/v1/positions/:position/session/abort
func (h *SessionHandler) AbortSession(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	var req AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := manager.Abort(*req.FileIndex); err != nil {
		status := http.StatusConflict
		if errors.Is(err, domain.ErrNoActiveSession) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download aborted", "session": manager.Snapshot()})
}

// PostPacket handles POST /api/v1/positions/:position/packets. Packet
// metadata travels in the query string and the body carries the data chunk.
func (h *SessionHandler) PostPacket(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	pkt, err := parsePacket(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  domain.ReturnInvalidPacket.String(),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPacketBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read packet data"})
		return
	}
	if int64(len(data)) > h.maxPacketBytes {
		h.logger.Warn("Oversized packet rejected",
			zap.String("position", c.Param("position")),
			zap.Uint32("file_index", pkt.FileIndex),
			zap.Int64("max_packet_bytes", h.maxPacketBytes))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "packet data exceeds " + strconv.FormatInt(h.maxPacketBytes, 10) + " bytes",
			"code":  domain.ReturnInvalidPacket.String(),
		})
		return
	}

	code := manager.OnPacket(pkt, data)
	c.JSON(http.StatusOK, PacketResponse{
		Code:  code.String(),
		Value: int(code),
		OK:    code.OK(),
		State: manager.Snapshot(),
	})
}

func parsePacket(c *gin.Context) (domain.Packet, error) {
	var pkt domain.Packet

	pkt.Event = domain.DownloadEvent(c.Query("event"))
	if !domain.ValidateEvent(pkt.Event) {
		return pkt, errors.New("event must be start, transfer or end")
	}

	index, err := strconv.ParseUint(c.Query("file_index"), 10, 32)
	if err != nil {
		return pkt, errors.New("invalid file_index")
	}
	pkt.FileIndex = uint32(index)

	if s := c.Query("file_size"); s != "" {
		if pkt.FileSize, err = strconv.ParseInt(s, 10, 64); err != nil || pkt.FileSize < 0 {
			return pkt, errors.New("invalid file_size")
		}
	}
	if s := c.Query("progress"); s != "" {
		pkt.ProgressPercent, err = strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(pkt.ProgressPercent) || pkt.ProgressPercent < 0 || pkt.ProgressPercent > 100 {
			return pkt, errors.New("progress must be a number between 0 and 100")
		}
	}
	return pkt, nil
}

// manager resolves the :position parameter, writing the error response itself
func (h *SessionHandler) manager(c *gin.Context) (*app.SessionManager, bool) {
	position, err := domain.ParseMountPosition(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	manager, ok := h.registry.Get(position)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "mount position not registered"})
		return nil, false
	}
	return manager, true
}
