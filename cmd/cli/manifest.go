package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/mediapull/internal/domain"
)

// manifest is the YAML form of a camera media listing:
//
//	position: 1
//	files:
//	  - index: 1
//	    name: DJI_0001.JPG
//	    size: 4194304
//	    type: jpeg
type manifest struct {
	Position int            `yaml:"position"`
	Files    []manifestFile `yaml:"files"`
}

type manifestFile struct {
	Index     uint32    `yaml:"index"`
	Name      string    `yaml:"name"`
	Size      int64     `yaml:"size"`
	Type      string    `yaml:"type"`
	CreatedAt time.Time `yaml:"created_at"`
}

// loadManifest reads a manifest file
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Descriptors converts the manifest entries; a missing type is guessed from
// the file extension
func (m *manifest) Descriptors() []domain.MediaFileDescriptor {
	files := make([]domain.MediaFileDescriptor, 0, len(m.Files))
	for _, f := range m.Files {
		fileType := domain.MediaFileType(strings.ToLower(f.Type))
		if fileType == "" {
			fileType = fileTypeFromName(f.Name)
		}
		files = append(files, domain.MediaFileDescriptor{
			FileIndex: f.Index,
			FileName:  f.Name,
			FileSize:  f.Size,
			FileType:  fileType,
			CreatedAt: f.CreatedAt,
		})
	}
	return files
}

func fileTypeFromName(name string) domain.MediaFileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return domain.FileTypeJPEG
	case ".dng":
		return domain.FileTypeDNG
	case ".mov":
		return domain.FileTypeMOV
	case ".mp4":
		return domain.FileTypeMP4
	case ".tif", ".tiff":
		return domain.FileTypeTIFF
	default:
		return domain.FileTypeUnknown
	}
}
