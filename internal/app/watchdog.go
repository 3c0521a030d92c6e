package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/pkg/logger"
)

// Watchdog aborts download sessions that stop receiving packets
type Watchdog struct {
	registry     *Registry
	stallTimeout time.Duration
	interval     time.Duration
	multiLogger  *logger.MultiLogger
	mu           sync.RWMutex
	running      bool
	stopChan     chan struct{}
	done         chan struct{}
	workerWg     sync.WaitGroup
}

// NewWatchdog creates a new watchdog
func NewWatchdog(registry *Registry, stallTimeout, interval time.Duration, multiLogger *logger.MultiLogger) *Watchdog {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watchdog{
		registry:     registry,
		stallTimeout: stallTimeout,
		interval:     interval,
		multiLogger:  multiLogger,
	}
}

// Start starts the watchdog loop
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loopAliveLocked() {
		return fmt.Errorf("watchdog already running")
	}
	if w.stallTimeout <= 0 {
		return fmt.Errorf("stall timeout must be positive")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	if w.multiLogger != nil {
		w.multiLogger.LogSessionEvent("watchdog_started",
			zap.Duration("stall_timeout", w.stallTimeout))
	}

	w.workerWg.Add(1)
	go w.run(ctx, w.stopChan, w.done)

	return nil
}

// Stop stops the watchdog loop
func (w *Watchdog) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("watchdog not running")
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.workerWg.Wait()

	if w.multiLogger != nil {
		w.multiLogger.LogSessionEvent("watchdog_stopped")
	}
	return nil
}

// IsRunning returns whether the watchdog loop is alive. It turns false once
// Stop is called or the context passed to Start is done.
func (w *Watchdog) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loopAliveLocked()
}

func (w *Watchdog) loopAliveLocked() bool {
	if !w.running {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Sweep aborts every stalled session once and returns how many were aborted
func (w *Watchdog) Sweep() int {
	aborted := 0
	for _, m := range w.registry.Managers() {
		fileIndex, ok := m.AbortIfStalled(w.stallTimeout)
		if !ok {
			continue
		}
		aborted++
		if w.multiLogger != nil {
			w.multiLogger.LogSessionEvent("session_stalled",
				zap.Stringer("position", m.Position()),
				zap.Uint32("file_index", fileIndex))
		}
	}
	return aborted
}

func (w *Watchdog) run(ctx context.Context, stopChan <-chan struct{}, done chan<- struct{}) {
	defer w.workerWg.Done()
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopChan:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}
