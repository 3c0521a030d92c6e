package app

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// Catalog keeps the last-known media listing of every mount position. The
// listing is refreshed by explicit imports; session managers only read it.
type Catalog struct {
	repo          domain.MediaFileRepository
	maxNameLength int
	logger        *zap.Logger

	mu       sync.RWMutex
	listings map[domain.MountPosition]map[uint32]domain.MediaFileDescriptor
}

// NewCatalog creates a catalog. repo may be nil for an in-memory catalog.
func NewCatalog(repo domain.MediaFileRepository, maxNameLength int, logger *zap.Logger) *Catalog {
	if maxNameLength <= 0 {
		maxNameLength = domain.DefaultMaxFileNameLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		repo:          repo,
		maxNameLength: maxNameLength,
		logger:        logger,
		listings:      make(map[domain.MountPosition]map[uint32]domain.MediaFileDescriptor),
	}
}

// Load restores the persisted listings of the given positions
func (c *Catalog) Load(positions []domain.MountPosition) error {
	if c.repo == nil {
		return nil
	}

	for _, position := range positions {
		files, err := c.repo.ListFiles(position)
		if err != nil {
			return fmt.Errorf("failed to load listing for position %d: %w", position, err)
		}

		listing := make(map[uint32]domain.MediaFileDescriptor, len(files))
		for _, f := range files {
			listing[f.FileIndex] = f
		}

		c.mu.Lock()
		c.listings[position] = listing
		c.mu.Unlock()

		c.logger.Info("Loaded media listing",
			zap.Stringer("position", position),
			zap.Int("files", len(files)))
	}
	return nil
}

// Replace validates and stores a new listing for a position, replacing the previous one
func (c *Catalog) Replace(position domain.MountPosition, files []domain.MediaFileDescriptor) error {
	if !domain.ValidateMountPosition(position) {
		return fmt.Errorf("invalid mount position: %d", position)
	}

	now := time.Now()
	listing := make(map[uint32]domain.MediaFileDescriptor, len(files))
	validated := make([]domain.MediaFileDescriptor, 0, len(files))
	for _, f := range files {
		f.Position = position
		if err := f.Validate(c.maxNameLength); err != nil {
			return err
		}
		if _, dup := listing[f.FileIndex]; dup {
			return fmt.Errorf("duplicate file index: %d", f.FileIndex)
		}
		if f.ListedAt.IsZero() {
			f.ListedAt = now
		}
		listing[f.FileIndex] = f
		validated = append(validated, f)
	}

	if c.repo != nil {
		if err := c.repo.ReplaceFileList(position, validated); err != nil {
			return fmt.Errorf("failed to persist listing: %w", err)
		}
	}

	c.mu.Lock()
	c.listings[position] = listing
	c.mu.Unlock()

	c.logger.Info("Media listing replaced",
		zap.Stringer("position", position),
		zap.Int("files", len(validated)))
	return nil
}

// Files returns the listing of a position ordered by file index
func (c *Catalog) Files(position domain.MountPosition) []domain.MediaFileDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	listing := c.listings[position]
	files := make([]domain.MediaFileDescriptor, 0, len(listing))
	for _, f := range listing {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileIndex < files[j].FileIndex })
	return files
}

// Lookup resolves a file index within a position's listing
func (c *Catalog) Lookup(position domain.MountPosition, fileIndex uint32) (domain.MediaFileDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.listings[position][fileIndex]
	return f, ok
}

// ForPosition returns a lister bound to one position
func (c *Catalog) ForPosition(position domain.MountPosition) domain.FileLister {
	return positionLister{catalog: c, position: position}
}

type positionLister struct {
	catalog  *Catalog
	position domain.MountPosition
}

func (l positionLister) Lookup(fileIndex uint32) (domain.MediaFileDescriptor, bool) {
	return l.catalog.Lookup(l.position, fileIndex)
}
