//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/yourusername/mediapull/api"
	"github.com/yourusername/mediapull/api/handlers"
	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
	"github.com/yourusername/mediapull/internal/infrastructure"
	"github.com/yourusername/mediapull/pkg/logger"
)

type stack struct {
	server   *httptest.Server
	bucket   *blob.Bucket
	history  *app.HistoryService
	watchdog *app.Watchdog
}

func setupStack(t *testing.T, stallTimeout time.Duration) *stack {
	t.Helper()
	root := t.TempDir()

	config := domain.DefaultConfig()
	config.Logging.LogsDir = filepath.Join(root, "logs")

	repo, err := infrastructure.NewSQLiteRepository(filepath.Join(root, "mediapull.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	multi, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: config.Logging.LogsDir})
	require.NoError(t, err)
	t.Cleanup(func() { multi.Close() })

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	opener := infrastructure.NewQueuedSinkOpener(
		infrastructure.NewBucketSinkOpener(bucket, "flights/0001", config.Download.MaxFileNameLength), 8)

	catalog := app.NewCatalog(repo, config.Download.MaxFileNameLength, nil)
	history := app.NewHistoryService(repo, nil)
	observers := domain.Observers{history, infrastructure.NewLogObserver(multi.Download())}

	registry := app.NewRegistry(catalog, opener, nil, observers, multi.Session())
	for _, position := range []domain.MountPosition{domain.MountPositionPayloadPort1, domain.MountPositionPayloadPort2} {
		_, err := registry.Register(position)
		require.NoError(t, err)
	}
	t.Cleanup(registry.Close)

	watchdog := app.NewWatchdog(registry, stallTimeout, 10*time.Millisecond, multi)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, watchdog.Start(ctx))
	t.Cleanup(func() { watchdog.Stop() })

	router := api.SetupRouter(api.Services{
		Registry: registry,
		Catalog:  catalog,
		History:  history,
		Watchdog: watchdog,
	}, logger.NewLoggerAdapter(multi, zap.NewNop()), config)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &stack{server: server, bucket: bucket, history: history, watchdog: watchdog}
}

func (s *stack) importFiles(t *testing.T, position int, files string) {
	t.Helper()
	url := fmt.Sprintf("%s/api/v1/positions/%d/files", s.server.URL, position)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBufferString(files))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (s *stack) send(t *testing.T, position int, event string, index uint32, size int64, data []byte) handlers.PacketResponse {
	t.Helper()
	url := fmt.Sprintf("%s/api/v1/positions/%d/packets?event=%s&file_index=%d&file_size=%d",
		s.server.URL, position, event, index, size)
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result handlers.PacketResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestDownloadIntoBucket(t *testing.T) {
	s := setupStack(t, time.Minute)
	s.importFiles(t, 1, `{"files":[{"file_index":4,"file_name":"/DCIM/100MEDIA/DJI_0004.JPG","file_size":3000,"file_type":"jpeg"}]}`)
	s.importFiles(t, 2, `{"files":[{"file_index":4,"file_name":"DJI_0004.DNG","file_size":1500,"file_type":"dng"}]}`)

	wide := bytes.Repeat([]byte("w"), 3000)
	raw := bytes.Repeat([]byte("r"), 1500)

	// two positions interleave their sessions
	assert.True(t, s.send(t, 1, "start", 4, 3000, wide[:1000]).OK)
	assert.True(t, s.send(t, 2, "start", 4, 1500, raw[:500]).OK)
	assert.True(t, s.send(t, 1, "transfer", 4, 3000, wide[1000:]).OK)
	assert.True(t, s.send(t, 2, "transfer", 4, 1500, raw[500:]).OK)
	assert.True(t, s.send(t, 2, "end", 4, 1500, nil).OK)
	assert.True(t, s.send(t, 1, "end", 4, 3000, nil).OK)

	ctx := context.Background()
	stored, err := s.bucket.ReadAll(ctx, "flights/0001/DJI_0004.JPG")
	require.NoError(t, err)
	assert.Equal(t, wide, stored)

	stored, err = s.bucket.ReadAll(ctx, "flights/0001/DJI_0004.DNG")
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	attrs, err := s.bucket.Attributes(ctx, "flights/0001/DJI_0004.DNG")
	require.NoError(t, err)
	assert.Equal(t, "2", attrs.Metadata["position"])

	records, err := s.history.ListDownloads(map[string]interface{}{"status": domain.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStalledSessionIsAborted(t *testing.T) {
	s := setupStack(t, 50*time.Millisecond)
	s.importFiles(t, 1, `{"files":[{"file_index":1,"file_name":"DJI_0001.MP4","file_size":100000,"file_type":"mp4"}]}`)

	assert.True(t, s.send(t, 1, "start", 1, 100000, []byte("partial")).OK)

	require.Eventually(t, func() bool {
		records, err := s.history.ListDownloads(map[string]interface{}{"status": domain.StatusAborted})
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the position is idle again, so a late transfer is a no-op
	result := s.send(t, 1, "transfer", 1, 100000, []byte("late"))
	assert.Equal(t, "success", result.Code)

	resp, err := http.Get(s.server.URL + "/api/v1/positions/1/session")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap app.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Equal(t, uint64(1), snap.Failed)
}
