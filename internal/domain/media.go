package domain

import (
	"fmt"
	"strconv"
	"time"
)

// MountPosition identifies the physical payload slot hosting a camera
type MountPosition uint8

const (
	MountPositionUnknown       MountPosition = 0
	MountPositionPayloadPort1  MountPosition = 1
	MountPositionPayloadPort2  MountPosition = 2
	MountPositionPayloadPort3  MountPosition = 3
	MountPositionExtensionPort MountPosition = 80
)

const (
	// DefaultMaxFileNameLength bounds device-reported file names
	DefaultMaxFileNameLength = 255
	// DefaultMaxPacketBytes is the largest payload a single packet can carry
	DefaultMaxPacketBytes = 65535
)

// ValidateMountPosition checks if a mount position is known
func ValidateMountPosition(position MountPosition) bool {
	switch position {
	case MountPositionPayloadPort1, MountPositionPayloadPort2, MountPositionPayloadPort3, MountPositionExtensionPort:
		return true
	default:
		return false
	}
}

// ParseMountPosition parses a numeric mount position
func ParseMountPosition(s string) (MountPosition, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return MountPositionUnknown, fmt.Errorf("invalid mount position %q: %w", s, err)
	}
	position := MountPosition(n)
	if !ValidateMountPosition(position) {
		return MountPositionUnknown, fmt.Errorf("unknown mount position: %d", n)
	}
	return position, nil
}

// String returns the position as a decimal string
func (p MountPosition) String() string {
	return strconv.Itoa(int(p))
}

// MediaFileType represents the kind of media stored on the camera
type MediaFileType string

const (
	FileTypeJPEG    MediaFileType = "jpeg"
	FileTypeDNG     MediaFileType = "dng"
	FileTypeMOV     MediaFileType = "mov"
	FileTypeMP4     MediaFileType = "mp4"
	FileTypeTIFF    MediaFileType = "tiff"
	FileTypeUnknown MediaFileType = "unknown"
)

// ValidateFileType checks if a media file type is valid
func ValidateFileType(fileType MediaFileType) bool {
	switch fileType {
	case FileTypeJPEG, FileTypeDNG, FileTypeMOV, FileTypeMP4, FileTypeTIFF, FileTypeUnknown:
		return true
	default:
		return false
	}
}

// MediaFileDescriptor describes one file from a camera's media listing
type MediaFileDescriptor struct {
	Position  MountPosition `json:"position" gorm:"primaryKey;autoIncrement:false"`
	FileIndex uint32        `json:"file_index" gorm:"primaryKey;autoIncrement:false"`
	FileName  string        `json:"file_name" gorm:"not null"`
	FileSize  int64         `json:"file_size"`
	FileType  MediaFileType `json:"file_type" gorm:"default:unknown"`
	CreatedAt time.Time     `json:"created_at"`
	ListedAt  time.Time     `json:"listed_at"`
}

// TableName specifies the table name for GORM
func (MediaFileDescriptor) TableName() string {
	return "media_files"
}

// Validate checks a descriptor before it enters a listing
func (m *MediaFileDescriptor) Validate(maxNameLength int) error {
	if m.FileName == "" {
		return fmt.Errorf("file index %d: empty file name", m.FileIndex)
	}
	if maxNameLength > 0 && len(m.FileName) > maxNameLength {
		return fmt.Errorf("file index %d: file name exceeds %d bytes", m.FileIndex, maxNameLength)
	}
	if m.FileSize < 0 {
		return fmt.Errorf("file index %d: negative file size", m.FileIndex)
	}
	if m.FileType == "" {
		m.FileType = FileTypeUnknown
	}
	if !ValidateFileType(m.FileType) {
		return fmt.Errorf("file index %d: invalid file type %q", m.FileIndex, m.FileType)
	}
	return nil
}
