package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediapull/internal/domain"
)

const sampleManifest = `position: 2
files:
  - index: 1
    name: DJI_0001.JPG
    size: 4194304
  - index: 2
    name: DJI_0002.MP4
    size: 104857600
    type: MOV
  - index: 3
    name: notes.txt
    size: 12
`

func TestParseManifest(t *testing.T) {
	m, err := parseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Position)

	files := m.Descriptors()
	require.Len(t, files, 3)
	assert.Equal(t, uint32(1), files[0].FileIndex)
	assert.Equal(t, "DJI_0001.JPG", files[0].FileName)
	assert.Equal(t, int64(4194304), files[0].FileSize)
	assert.Equal(t, domain.FileTypeJPEG, files[0].FileType)
	// explicit type wins over the extension
	assert.Equal(t, domain.FileTypeMOV, files[1].FileType)
	assert.Equal(t, domain.FileTypeUnknown, files[2].FileType)
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := parseManifest([]byte("files: [index: {"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0644))

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Files, 3)

	_, err = loadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFileTypeFromName(t *testing.T) {
	tests := map[string]domain.MediaFileType{
		"a.jpg":  domain.FileTypeJPEG,
		"a.JPEG": domain.FileTypeJPEG,
		"a.dng":  domain.FileTypeDNG,
		"a.MOV":  domain.FileTypeMOV,
		"a.mp4":  domain.FileTypeMP4,
		"a.tif":  domain.FileTypeTIFF,
		"a":      domain.FileTypeUnknown,
	}
	for name, expected := range tests {
		assert.Equal(t, expected, fileTypeFromName(name), name)
	}
}
