package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yourusername/mediapull/internal/domain"
)

// apiClient talks to a mediapull server
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a non-2xx answer from the server
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// packetResult mirrors the server's packet response
type packetResult struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
	OK    bool   `json:"ok"`
}

func (c *apiClient) do(method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := string(data)
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *apiClient) getJSON(path string, out interface{}) error {
	return c.do(http.MethodGet, path, "", nil, out)
}

func (c *apiClient) sendJSON(method, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(method, path, "application/json", bytes.NewReader(data), out)
}

// ReplaceFiles uploads a complete media listing for a position
func (c *apiClient) ReplaceFiles(position domain.MountPosition, files []domain.MediaFileDescriptor) error {
	payload := map[string]interface{}{"files": files}
	return c.sendJSON(http.MethodPut, "/api/v1/positions/"+position.String()+"/files", payload, nil)
}

// ListFiles returns the media listing of a position
func (c *apiClient) ListFiles(position domain.MountPosition) ([]domain.MediaFileDescriptor, error) {
	var files []domain.MediaFileDescriptor
	err := c.getJSON("/api/v1/positions/"+position.String()+"/files", &files)
	return files, err
}

// SendPacket delivers one packet with its data chunk
func (c *apiClient) SendPacket(position domain.MountPosition, pkt domain.Packet, data []byte) (packetResult, error) {
	q := url.Values{}
	q.Set("event", string(pkt.Event))
	q.Set("file_index", strconv.FormatUint(uint64(pkt.FileIndex), 10))
	q.Set("file_size", strconv.FormatInt(pkt.FileSize, 10))
	q.Set("progress", strconv.FormatFloat(pkt.ProgressPercent, 'f', 2, 64))

	var result packetResult
	path := "/api/v1/positions/" + position.String() + "/packets?" + q.Encode()
	err := c.do(http.MethodPost, path, "application/octet-stream", bytes.NewReader(data), &result)
	return result, err
}

// Abort aborts the active session of a position
func (c *apiClient) Abort(position domain.MountPosition, fileIndex uint32) error {
	payload := map[string]uint32{"file_index": fileIndex}
	return c.sendJSON(http.MethodPost, "/api/v1/positions/"+position.String()+"/session/abort", payload, nil)
}
