package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/mediapull/api/handlers"
	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
	"github.com/yourusername/mediapull/internal/infrastructure"
	"github.com/yourusername/mediapull/pkg/logger"
)

type testServer struct {
	router    *gin.Engine
	outputDir string
	multi     *logger.MultiLogger
	history   *app.HistoryService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()

	config := domain.DefaultConfig()
	config.Download.OutputDir = filepath.Join(root, "media")
	config.Download.MaxPacketBytes = 1024
	config.Logging.LogsDir = filepath.Join(root, "logs")

	repo, err := infrastructure.NewSQLiteRepository(filepath.Join(root, "mediapull.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	multi, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "debug", LogsDir: config.Logging.LogsDir})
	require.NoError(t, err)
	t.Cleanup(func() { multi.Close() })
	logAdapter := logger.NewLoggerAdapter(multi, zap.NewNop())

	catalog := app.NewCatalog(repo, config.Download.MaxFileNameLength, nil)
	history := app.NewHistoryService(repo, nil)
	observers := domain.Observers{history, infrastructure.NewLogObserver(multi.Download())}
	opener := infrastructure.NewFileSinkOpener(config.Download.OutputDir, config.Download.MaxFileNameLength)

	registry := app.NewRegistry(catalog, opener, nil, observers, nil)
	_, err = registry.Register(domain.MountPositionPayloadPort1)
	require.NoError(t, err)

	router := SetupRouter(Services{
		Registry: registry,
		Catalog:  catalog,
		History:  history,
	}, logAdapter, config)

	return &testServer{
		router:    router,
		outputDir: config.Download.OutputDir,
		multi:     multi,
		history:   history,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if len(body) > 0 && body[0] == '{' {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) importFiles(t *testing.T) {
	t.Helper()
	body := []byte(`{"files":[
		{"file_index":1,"file_name":"DJI_0001.JPG","file_size":1000,"file_type":"jpeg"},
		{"file_index":2,"file_name":"/DCIM/DJI_0002.MP4","file_size":10,"file_type":"mp4"}
	]}`)
	w := s.do(t, http.MethodPut, "/api/v1/positions/1/files", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *testServer) packet(t *testing.T, event string, index uint32, size int64, data []byte) handlers.PacketResponse {
	t.Helper()
	path := fmt.Sprintf("/api/v1/positions/1/packets?event=%s&file_index=%d&file_size=%d&progress=50", event, index, size)
	w := s.do(t, http.MethodPost, path, data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.PacketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Positions)
	assert.False(t, resp.Watchdog.Running)

	w = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFiles_ReplaceAndList(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	w := s.do(t, http.MethodGet, "/api/v1/positions/1/files", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var files []domain.MediaFileDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "DJI_0001.JPG", files[0].FileName)

	w = s.do(t, http.MethodPut, "/api/v1/positions/1/files", []byte(`{"files":[{"file_index":1,"file_name":""}]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/positions/7/files", []byte(`{"files":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPackets_FullDownload(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	head := bytes.Repeat([]byte("a"), 100)
	body := bytes.Repeat([]byte("b"), 900)

	resp := s.packet(t, "start", 1, 1000, head)
	assert.True(t, resp.OK)
	assert.Equal(t, domain.StateReceiving, resp.State.State)

	resp = s.packet(t, "transfer", 1, 1000, body)
	assert.True(t, resp.OK)
	assert.Equal(t, int64(1000), resp.State.BytesWritten)

	resp = s.packet(t, "end", 1, 1000, nil)
	assert.True(t, resp.OK)
	assert.Equal(t, domain.StateIdle, resp.State.State)
	assert.Equal(t, uint64(1), resp.State.Completed)

	data, err := os.ReadFile(filepath.Join(s.outputDir, "DJI_0001.JPG"))
	require.NoError(t, err)
	assert.Equal(t, append(head, body...), data)

	w := s.do(t, http.MethodGet, "/api/v1/downloads?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []domain.DownloadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, int64(1000), records[0].BytesWritten)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/"+records[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.DownloadStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Completed)
}

func TestPackets_SanitizedFileName(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	s.packet(t, "start", 2, 10, []byte("0123456789"))
	s.packet(t, "end", 2, 10, nil)

	_, err := os.Stat(filepath.Join(s.outputDir, "DJI_0002.MP4"))
	assert.NoError(t, err)
}

func TestPackets_ReturnCodes(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	resp := s.packet(t, "transfer", 1, 1000, []byte("idle"))
	assert.True(t, resp.OK)
	assert.Equal(t, uint64(1), resp.State.Violations)

	resp = s.packet(t, "start", 42, 1000, nil)
	assert.False(t, resp.OK)
	assert.Equal(t, domain.ReturnUnknownFileIndex.String(), resp.Code)
	assert.Equal(t, int(domain.ReturnUnknownFileIndex), resp.Value)

	s.packet(t, "start", 1, 1000, []byte("x"))
	resp = s.packet(t, "transfer", 2, 1000, []byte("y"))
	assert.Equal(t, domain.ReturnProtocolViolation.String(), resp.Code)
}

func TestPackets_RejectedRequests(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	w := s.do(t, http.MethodPost, "/api/v1/positions/1/packets?event=start&file_index=1", bytes.Repeat([]byte("x"), 1025))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/1/packets?event=resume&file_index=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/1/packets?event=start&file_index=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/2/packets?event=start&file_index=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/abc/packets?event=start&file_index=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, progress := range []string{"NaN", "Inf", "-Inf", "-1", "100.5", "half"} {
		w = s.do(t, http.MethodPost, "/api/v1/positions/1/packets?event=start&file_index=1&progress="+progress, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, progress)
		assert.Contains(t, w.Body.String(), "invalid_packet", progress)
	}

	// nothing was opened by the rejected requests
	w = s.do(t, http.MethodGet, "/api/v1/positions/1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap app.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Equal(t, uint64(0), snap.Packets)
}

func TestSession_Abort(t *testing.T) {
	s := setupTestServer(t)
	s.importFiles(t)

	w := s.do(t, http.MethodPost, "/api/v1/positions/1/session/abort", []byte(`{"file_index":1}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.packet(t, "start", 1, 1000, []byte("partial"))

	w = s.do(t, http.MethodPost, "/api/v1/positions/1/session/abort", []byte(`{"file_index":2}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/1/session/abort", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/positions/1/session/abort", []byte(`{"file_index":1}`))
	require.Equal(t, http.StatusOK, w.Code)

	records, err := s.history.ListDownloads(map[string]interface{}{"status": string(domain.StatusAborted)})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0].BytesWritten)

	w = s.do(t, http.MethodGet, "/api/v1/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snaps []app.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, domain.StateIdle, snaps[0].State)
}

func TestLogs(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodGet, "/health", nil)

	w := s.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session"`)

	w = s.do(t, http.MethodGet, "/api/v1/logs/access?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count   int               `json:"count"`
		Entries []logger.LogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.GreaterOrEqual(t, resp.Count, 1)
	assert.Equal(t, "/health", resp.Entries[0].Fields["path"])

	w = s.do(t, http.MethodGet, "/api/v1/logs/access/search?q=health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/access/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/queue", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/access?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/access/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "access-")

	w = s.do(t, http.MethodGet, "/api/v1/logs/session/export?date=2001-01-01", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogStream_WebSocket(t *testing.T) {
	s := setupTestServer(t)
	s.multi.LogSessionEvent("session_marker")

	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/logs/stream?category=session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(message, &entry))
	assert.Equal(t, "session_marker", entry.Message)
}

func TestLogStream_InvalidCategory(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/logs/stream?category=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoRoute(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodOptions, "/api/v1/positions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
