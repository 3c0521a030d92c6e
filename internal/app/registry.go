package app

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// Registry binds packet callbacks to mount positions. Every position owns an
// independent SessionManager; positions share no session state.
type Registry struct {
	catalog  *Catalog
	opener   domain.SinkOpener
	clock    Clock
	observer domain.Observer
	logger   *zap.Logger

	mu       sync.RWMutex
	managers map[domain.MountPosition]*SessionManager
}

// NewRegistry creates a registry that builds managers from shared collaborators
func NewRegistry(
	catalog *Catalog,
	opener domain.SinkOpener,
	clock Clock,
	observer domain.Observer,
	logger *zap.Logger,
) *Registry {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		catalog:  catalog,
		opener:   opener,
		clock:    clock,
		observer: observer,
		logger:   logger,
		managers: make(map[domain.MountPosition]*SessionManager),
	}
}

// Register creates the session manager for a position and returns the
// callback the transport delivers packets to. Registering twice is an error.
func (r *Registry) Register(position domain.MountPosition) (domain.PacketCallback, error) {
	if !domain.ValidateMountPosition(position) {
		return nil, fmt.Errorf("invalid mount position: %d", position)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.managers[position]; exists {
		return nil, fmt.Errorf("mount position %d already registered", position)
	}

	manager := NewSessionManager(position, r.catalog.ForPosition(position), r.opener, r.clock, r.observer, r.logger)
	r.managers[position] = manager

	r.logger.Info("Registered download callback", zap.Stringer("position", position))
	return manager.OnPacket, nil
}

// Get returns the manager of a registered position
func (r *Registry) Get(position domain.MountPosition) (*SessionManager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[position]
	return m, ok
}

// Positions returns the registered positions in ascending order
func (r *Registry) Positions() []domain.MountPosition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	positions := make([]domain.MountPosition, 0, len(r.managers))
	for p := range r.managers {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	return positions
}

// Managers returns the registered managers ordered by position
func (r *Registry) Managers() []*SessionManager {
	positions := r.Positions()

	r.mu.RLock()
	defer r.mu.RUnlock()

	managers := make([]*SessionManager, 0, len(positions))
	for _, p := range positions {
		managers = append(managers, r.managers[p])
	}
	return managers
}

// Snapshots returns the session snapshot of every registered position
func (r *Registry) Snapshots() []SessionSnapshot {
	managers := r.Managers()
	snaps := make([]SessionSnapshot, 0, len(managers))
	for _, m := range managers {
		snaps = append(snaps, m.Snapshot())
	}
	return snaps
}

// Close releases the active sinks of all managers
func (r *Registry) Close() {
	for _, m := range r.Managers() {
		m.Close()
	}
}
