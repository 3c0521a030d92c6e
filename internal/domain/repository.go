package domain

// MediaFileRepository defines the interface for media listing persistence
type MediaFileRepository interface {
	// ReplaceFileList replaces the stored listing of a mount position
	ReplaceFileList(position MountPosition, files []MediaFileDescriptor) error

	// ListFiles returns the stored listing of a mount position ordered by file index
	ListFiles(position MountPosition) ([]MediaFileDescriptor, error)
}

// DownloadRecordRepository defines the interface for download history persistence
type DownloadRecordRepository interface {
	// Create creates a new download record
	Create(record *DownloadRecord) error

	// Update updates an existing download record
	Update(record *DownloadRecord) error

	// FindByID finds a download record by ID
	FindByID(id string) (*DownloadRecord, error)

	// FindAll finds all download records with optional filters
	FindAll(filters map[string]interface{}) ([]*DownloadRecord, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total        int64 `json:"total"`
	Receiving    int64 `json:"receiving"`
	Completed    int64 `json:"completed"`
	Failed       int64 `json:"failed"`
	Aborted      int64 `json:"aborted"`
	BytesWritten int64 `json:"bytes_written"`
}
