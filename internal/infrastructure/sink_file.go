package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/mediapull/internal/domain"
)

// FileSinkOpener creates local files named after the sanitized media file name.
// Existing files with the same name are truncated.
type FileSinkOpener struct {
	dir           string
	maxNameLength int
}

// NewFileSinkOpener creates an opener writing into dir
func NewFileSinkOpener(dir string, maxNameLength int) *FileSinkOpener {
	if dir == "" {
		dir = "."
	}
	return &FileSinkOpener{dir: dir, maxNameLength: maxNameLength}
}

// Open creates the output file for desc
func (o *FileSinkOpener) Open(desc domain.MediaFileDescriptor) (domain.Sink, error) {
	if err := os.MkdirAll(o.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	name := SanitizeFileName(desc.FileName, desc.FileIndex, o.maxNameLength)
	path := filepath.Join(o.dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &fileSink{File: file, path: path}, nil
}

type fileSink struct {
	*os.File
	path string
}

func (s *fileSink) Location() string {
	return s.path
}
