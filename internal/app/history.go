package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// HistoryService records every download session in the repository and serves
// the history back to the API. It is a session observer.
type HistoryService struct {
	repo   domain.DownloadRecordRepository
	logger *zap.Logger

	mu     sync.Mutex
	active map[domain.MountPosition]*domain.DownloadRecord
}

// NewHistoryService creates a new history service
func NewHistoryService(repo domain.DownloadRecordRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		repo:   repo,
		logger: logger,
		active: make(map[domain.MountPosition]*domain.DownloadRecord),
	}
}

// Started creates a receiving record for the session
func (h *HistoryService) Started(event domain.StartEvent) {
	record := domain.NewDownloadRecord(event.Position, event.Descriptor, event.Location)
	if err := h.repo.Create(record); err != nil {
		h.logger.Error("Failed to create download record",
			zap.Stringer("position", event.Position),
			zap.Uint32("file_index", event.Descriptor.FileIndex),
			zap.Error(err))
		return
	}

	h.mu.Lock()
	h.active[event.Position] = record
	h.mu.Unlock()
}

// Progress is not recorded; the session snapshot carries live progress
func (h *HistoryService) Progress(domain.ProgressEvent) {}

// Completed marks the session's record as completed
func (h *HistoryService) Completed(event domain.SummaryEvent) {
	record := h.take(event.Position, event.FileIndex)
	if record == nil {
		return
	}
	record.MarkCompleted(event.BytesWritten, event.AverageSpeedKBps)
	h.update(record)
}

// Failed marks the session's record as failed or aborted. Failures that
// happen before a record exists (sink open errors) get a record of their own.
func (h *HistoryService) Failed(event domain.FailureEvent) {
	record := h.take(event.Position, event.FileIndex)
	if record == nil {
		record = domain.NewDownloadRecord(event.Position, domain.MediaFileDescriptor{
			FileIndex: event.FileIndex,
			FileName:  event.FileName,
		}, "")
		record.MarkFailed(event.BytesWritten, event.Err)
		if err := h.repo.Create(record); err != nil {
			h.logger.Error("Failed to create download record", zap.Error(err))
		}
		return
	}

	if event.Aborted {
		record.MarkAborted(event.BytesWritten)
	} else {
		record.MarkFailed(event.BytesWritten, event.Err)
	}
	h.update(record)
}

func (h *HistoryService) take(position domain.MountPosition, fileIndex uint32) *domain.DownloadRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	record, ok := h.active[position]
	if !ok || record.FileIndex != fileIndex {
		return nil
	}
	delete(h.active, position)
	return record
}

func (h *HistoryService) update(record *domain.DownloadRecord) {
	if err := h.repo.Update(record); err != nil {
		h.logger.Error("Failed to update download record",
			zap.String("id", record.ID),
			zap.Error(err))
	}
}

// GetDownload retrieves a download record by ID
func (h *HistoryService) GetDownload(id string) (*domain.DownloadRecord, error) {
	record, err := h.repo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("download not found: %w", err)
	}
	return record, nil
}

// ListDownloads lists download records with optional filters
func (h *HistoryService) ListDownloads(filters map[string]interface{}) ([]*domain.DownloadRecord, error) {
	return h.repo.FindAll(filters)
}

// GetStats returns download statistics
func (h *HistoryService) GetStats() (*domain.DownloadStats, error) {
	return h.repo.GetStats()
}
