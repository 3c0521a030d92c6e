package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download record
type DownloadStatus string

const (
	StatusReceiving DownloadStatus = "receiving"
	StatusCompleted DownloadStatus = "completed"
	StatusFailed    DownloadStatus = "failed"
	StatusAborted   DownloadStatus = "aborted"
)

// ValidateStatus checks if a download status is valid
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusReceiving, StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// DownloadRecord is the persisted history of one download session
type DownloadRecord struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	Position         MountPosition  `json:"position" gorm:"not null;index"`
	FileIndex        uint32         `json:"file_index" gorm:"not null"`
	FileName         string         `json:"file_name" gorm:"not null"`
	LocalPath        string         `json:"local_path,omitempty"`
	Status           DownloadStatus `json:"status" gorm:"not null;index"`
	BytesWritten     int64          `json:"bytes_written"`
	FileSize         int64          `json:"file_size"`
	AverageSpeedKBps float64        `json:"average_speed_kbps"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// NewDownloadRecord creates a record for a session that just started
func NewDownloadRecord(position MountPosition, desc MediaFileDescriptor, localPath string) *DownloadRecord {
	now := time.Now()
	return &DownloadRecord{
		ID:        uuid.New().String(),
		Position:  position,
		FileIndex: desc.FileIndex,
		FileName:  desc.FileName,
		LocalPath: localPath,
		Status:    StatusReceiving,
		FileSize:  desc.FileSize,
		CreatedAt: now,
		UpdatedAt: now,
		StartedAt: &now,
	}
}

// MarkCompleted marks the record as completed
func (d *DownloadRecord) MarkCompleted(bytesWritten int64, speedKBps float64) {
	d.Status = StatusCompleted
	d.BytesWritten = bytesWritten
	d.AverageSpeedKBps = speedKBps
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the record as failed
func (d *DownloadRecord) MarkFailed(bytesWritten int64, err error) {
	d.Status = StatusFailed
	d.BytesWritten = bytesWritten
	if err != nil {
		d.ErrorMessage = err.Error()
	}
	d.UpdatedAt = time.Now()
}

// MarkAborted marks the record as aborted by the caller
func (d *DownloadRecord) MarkAborted(bytesWritten int64) {
	d.Status = StatusAborted
	d.BytesWritten = bytesWritten
	d.ErrorMessage = "aborted"
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the record is in a terminal state
func (d *DownloadRecord) IsTerminal() bool {
	return d.Status != StatusReceiving
}
