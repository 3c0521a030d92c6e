package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/mediapull/internal/domain"
)

// allowedFilters lists the columns FindAll accepts as filters
var allowedFilters = map[string]bool{
	"status":     true,
	"position":   true,
	"file_index": true,
	"file_name":  true,
}

// SQLiteRepository implements MediaFileRepository and DownloadRecordRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.MediaFileDescriptor{}, &domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// ============================================================================
// MediaFileRepository implementation
// ============================================================================

// ReplaceFileList replaces the stored listing of a mount position
func (r *SQLiteRepository) ReplaceFileList(position domain.MountPosition, files []domain.MediaFileDescriptor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("position = ?", position).Delete(&domain.MediaFileDescriptor{}).Error; err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		for i := range files {
			files[i].Position = position
		}
		return tx.CreateInBatches(files, 100).Error
	})
}

// ListFiles returns the stored listing of a mount position ordered by file index
func (r *SQLiteRepository) ListFiles(position domain.MountPosition) ([]domain.MediaFileDescriptor, error) {
	var files []domain.MediaFileDescriptor
	err := r.db.Where("position = ?", position).Order("file_index ASC").Find(&files).Error
	return files, err
}

// ============================================================================
// DownloadRecordRepository implementation
// ============================================================================

// Create creates a new download record
func (r *SQLiteRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing download record
func (r *SQLiteRepository) Update(record *domain.DownloadRecord) error {
	return r.db.Save(record).Error
}

// FindByID finds a download record by ID
func (r *SQLiteRepository) FindByID(id string) (*domain.DownloadRecord, error) {
	var record domain.DownloadRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAll finds all download records with optional filters, newest first
func (r *SQLiteRepository) FindAll(filters map[string]interface{}) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db

	for key, value := range filters {
		if !allowedFilters[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// GetStats returns download statistics
func (r *SQLiteRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.DownloadRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusReceiving:
			stats.Receiving = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusAborted:
			stats.Aborted = sc.Count
		}
	}

	var bytesWritten struct{ Total int64 }
	if err := r.db.Model(&domain.DownloadRecord{}).
		Select("COALESCE(SUM(bytes_written), 0) as total").
		Where("status = ?", domain.StatusCompleted).
		Scan(&bytesWritten).Error; err != nil {
		return nil, err
	}
	stats.BytesWritten = bytesWritten.Total

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
