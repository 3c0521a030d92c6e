package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// Clock returns monotonic milliseconds
type Clock interface {
	NowMs() int64
}

// MonotonicClock measures milliseconds since its creation using the runtime's monotonic reading
type MonotonicClock struct {
	base time.Time
}

// NewMonotonicClock creates a clock anchored at the current instant
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: time.Now()}
}

// NowMs returns elapsed milliseconds since the clock was created
func (c *MonotonicClock) NowMs() int64 {
	return time.Since(c.base).Milliseconds()
}

// SessionSnapshot is a read-only view of a manager's state
type SessionSnapshot struct {
	Position     domain.MountPosition `json:"position"`
	State        domain.SessionState  `json:"state"`
	FileIndex    uint32               `json:"file_index,omitempty"`
	FileName     string               `json:"file_name,omitempty"`
	Location     string               `json:"location,omitempty"`
	BytesWritten int64                `json:"bytes_written"`
	FileSize     int64                `json:"file_size"`
	Percent      float64              `json:"percent"`
	ElapsedMs    int64                `json:"elapsed_ms"`
	IdleMs       int64                `json:"idle_ms"`
	Packets      uint64               `json:"packets"`
	Violations   uint64               `json:"violations"`
	Completed    uint64               `json:"completed"`
	Failed       uint64               `json:"failed"`
}

// downloadSession is the state of one file transfer between START and END
type downloadSession struct {
	desc         domain.MediaFileDescriptor
	sink         domain.Sink
	startMs      int64
	lastPacketMs int64
	bytesWritten int64
	percent      float64
}

// SessionManager reassembles files delivered as START/TRANSFER/END packets for
// one mount position. At most one session is active at a time.
type SessionManager struct {
	position domain.MountPosition
	lister   domain.FileLister
	opener   domain.SinkOpener
	clock    Clock
	observer domain.Observer
	logger   *zap.Logger

	mu         sync.Mutex
	active     *downloadSession
	packets    uint64
	violations uint64
	completed  uint64
	failed     uint64
}

// NewSessionManager creates a session manager for a mount position
func NewSessionManager(
	position domain.MountPosition,
	lister domain.FileLister,
	opener domain.SinkOpener,
	clock Clock,
	observer domain.Observer,
	logger *zap.Logger,
) *SessionManager {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	if observer == nil {
		observer = domain.Observers{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.Stringer("position", position))

	return &SessionManager{
		position: position,
		lister:   lister,
		opener:   opener,
		clock:    clock,
		observer: guardedObserver{inner: observer, logger: logger},
		logger:   logger,
	}
}

// guardedObserver contains observer panics so they never reach the packet
// callback, including from inside its own panic recovery
type guardedObserver struct {
	inner  domain.Observer
	logger *zap.Logger
}

func (g guardedObserver) guard(event string) {
	if r := recover(); r != nil {
		g.logger.Error("Panic recovered in observer",
			zap.String("observer_event", event),
			zap.Any("error", r))
	}
}

func (g guardedObserver) Started(event domain.StartEvent) {
	defer g.guard("started")
	g.inner.Started(event)
}

func (g guardedObserver) Progress(event domain.ProgressEvent) {
	defer g.guard("progress")
	g.inner.Progress(event)
}

func (g guardedObserver) Completed(event domain.SummaryEvent) {
	defer g.guard("completed")
	g.inner.Completed(event)
}

func (g guardedObserver) Failed(event domain.FailureEvent) {
	defer g.guard("failed")
	g.inner.Failed(event)
}

// Position returns the mount position served by the manager
func (m *SessionManager) Position() domain.MountPosition {
	return m.position
}

// OnPacket handles one packet from the transport. Failures are converted to a
// return code; the manager is always left idle or receiving with a valid sink.
func (m *SessionManager) OnPacket(pkt domain.Packet, data []byte) (code domain.ReturnCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic recovered in packet callback",
				zap.Any("error", r),
				zap.String("event", string(pkt.Event)),
				zap.Uint32("file_index", pkt.FileIndex))
			m.releaseLocked(domain.ReturnInternal, fmt.Errorf("panic: %v", r), false)
			code = domain.ReturnInternal
		}
	}()

	m.packets++

	var err error
	switch pkt.Event {
	case domain.EventStart:
		err = m.handleStart(pkt, data)
	case domain.EventTransfer:
		err = m.handleTransfer(pkt, data)
	case domain.EventEnd:
		err = m.handleEnd(pkt, data)
	default:
		err = fmt.Errorf("%w: event %q", domain.ErrInvalidPacket, pkt.Event)
	}

	code = domain.ReturnCodeFromError(err)
	if err != nil {
		m.logger.Warn("Packet rejected",
			zap.String("event", string(pkt.Event)),
			zap.Uint32("file_index", pkt.FileIndex),
			zap.Stringer("code", code),
			zap.Error(err))
	}
	return code
}

func (m *SessionManager) handleStart(pkt domain.Packet, data []byte) error {
	if m.active != nil {
		m.violations++
		m.logger.Warn("Start received while receiving, closing stale session",
			zap.Uint32("stale_file_index", m.active.desc.FileIndex),
			zap.Uint32("file_index", pkt.FileIndex))
		m.releaseLocked(domain.ReturnProtocolViolation,
			fmt.Errorf("%w: superseded by start of file index %d", domain.ErrProtocolViolation, pkt.FileIndex), false)
	}

	desc, ok := m.lister.Lookup(pkt.FileIndex)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownFileIndex, pkt.FileIndex)
	}

	sink, err := m.opener.Open(desc)
	if err != nil {
		m.failed++
		m.observer.Failed(domain.FailureEvent{
			Position:  m.position,
			FileIndex: desc.FileIndex,
			FileName:  desc.FileName,
			Code:      domain.ReturnSinkOpenError,
			Err:       err,
		})
		return fmt.Errorf("%w: %s: %v", domain.ErrSinkOpen, desc.FileName, err)
	}

	now := m.clock.NowMs()
	m.active = &downloadSession{
		desc:         desc,
		sink:         sink,
		startMs:      now,
		lastPacketMs: now,
	}

	m.logger.Info("Start download media file",
		zap.Uint32("file_index", desc.FileIndex),
		zap.String("file_name", desc.FileName),
		zap.String("location", sink.Location()))
	m.observer.Started(domain.StartEvent{
		Position:   m.position,
		Descriptor: desc,
		Location:   sink.Location(),
	})

	return m.writeLocked(data)
}

func (m *SessionManager) handleTransfer(pkt domain.Packet, data []byte) error {
	if m.active == nil {
		m.idleViolation(pkt)
		return nil
	}
	if pkt.FileIndex != m.active.desc.FileIndex {
		m.violations++
		return fmt.Errorf("%w: transfer for file index %d while receiving %d",
			domain.ErrProtocolViolation, pkt.FileIndex, m.active.desc.FileIndex)
	}

	if err := m.writeLocked(data); err != nil {
		return err
	}

	// snapshots are JSON encoded, which rejects NaN and Inf
	if !math.IsNaN(pkt.ProgressPercent) && !math.IsInf(pkt.ProgressPercent, 0) {
		m.active.percent = pkt.ProgressPercent
	}
	m.observer.Progress(domain.ProgressEvent{
		Position:  m.position,
		FileIndex: pkt.FileIndex,
		FileName:  m.active.desc.FileName,
		Percent:   pkt.ProgressPercent,
		TotalSize: pkt.FileSize,
	})
	return nil
}

func (m *SessionManager) handleEnd(pkt domain.Packet, data []byte) error {
	if m.active == nil {
		m.idleViolation(pkt)
		return nil
	}
	if pkt.FileIndex != m.active.desc.FileIndex {
		m.violations++
		return fmt.Errorf("%w: end for file index %d while receiving %d",
			domain.ErrProtocolViolation, pkt.FileIndex, m.active.desc.FileIndex)
	}

	if err := m.writeLocked(data); err != nil {
		return err
	}

	session := m.active
	m.active = nil
	endMs := m.clock.NowMs()

	if err := session.sink.Close(); err != nil {
		m.failed++
		wrapped := fmt.Errorf("%w: close %s: %v", domain.ErrSinkWrite, session.desc.FileName, err)
		m.observer.Failed(domain.FailureEvent{
			Position:     m.position,
			FileIndex:    session.desc.FileIndex,
			FileName:     session.desc.FileName,
			BytesWritten: session.bytesWritten,
			Code:         domain.ReturnSinkWriteError,
			Err:          wrapped,
		})
		return wrapped
	}

	speed := Speed(pkt.FileSize, session.startMs, endMs)
	m.completed++

	m.logger.Info("End download media file",
		zap.Uint32("file_index", session.desc.FileIndex),
		zap.String("file_name", session.desc.FileName),
		zap.Int64("bytes_written", session.bytesWritten),
		zap.Float64("average_speed_kbps", speed))
	m.observer.Completed(domain.SummaryEvent{
		Position:         m.position,
		FileIndex:        session.desc.FileIndex,
		FileName:         session.desc.FileName,
		Location:         session.sink.Location(),
		BytesWritten:     session.bytesWritten,
		TotalSize:        pkt.FileSize,
		Duration:         time.Duration(endMs-session.startMs) * time.Millisecond,
		AverageSpeedKBps: speed,
	})
	return nil
}

// Abort closes the active session for fileIndex and returns the manager to idle
func (m *SessionManager) Abort(fileIndex uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return domain.ErrNoActiveSession
	}
	if m.active.desc.FileIndex != fileIndex {
		return fmt.Errorf("%w: abort for file index %d while receiving %d",
			domain.ErrProtocolViolation, fileIndex, m.active.desc.FileIndex)
	}

	m.logger.Info("Download aborted",
		zap.Uint32("file_index", fileIndex),
		zap.Int64("bytes_written", m.active.bytesWritten))
	m.releaseLocked(domain.ReturnSuccess, fmt.Errorf("aborted by caller"), true)
	return nil
}

// AbortIfStalled aborts the active session when no packet arrived within timeout.
// It returns the aborted file index and true when a session was aborted.
func (m *SessionManager) AbortIfStalled(timeout time.Duration) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || timeout <= 0 {
		return 0, false
	}
	idle := m.clock.NowMs() - m.active.lastPacketMs
	if idle < timeout.Milliseconds() {
		return 0, false
	}

	fileIndex := m.active.desc.FileIndex
	m.logger.Warn("Download stalled, aborting",
		zap.Uint32("file_index", fileIndex),
		zap.Int64("idle_ms", idle))
	m.releaseLocked(domain.ReturnSuccess, fmt.Errorf("stalled for %dms", idle), true)
	return fileIndex, true
}

// Snapshot returns the current state of the manager
func (m *SessionManager) Snapshot() SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := SessionSnapshot{
		Position:   m.position,
		State:      domain.StateIdle,
		Packets:    m.packets,
		Violations: m.violations,
		Completed:  m.completed,
		Failed:     m.failed,
	}
	if m.active != nil {
		now := m.clock.NowMs()
		snap.State = domain.StateReceiving
		snap.FileIndex = m.active.desc.FileIndex
		snap.FileName = m.active.desc.FileName
		snap.Location = m.active.sink.Location()
		snap.BytesWritten = m.active.bytesWritten
		snap.FileSize = m.active.desc.FileSize
		snap.Percent = m.active.percent
		snap.ElapsedMs = now - m.active.startMs
		snap.IdleMs = now - m.active.lastPacketMs
	}
	return snap
}

// Close releases any active sink, used on shutdown
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.releaseLocked(domain.ReturnSuccess, fmt.Errorf("manager closed"), true)
	}
}

// writeLocked appends data to the active sink. On failure the sink is closed
// and the manager returns to idle.
func (m *SessionManager) writeLocked(data []byte) error {
	m.active.lastPacketMs = m.clock.NowMs()
	if len(data) == 0 {
		return nil
	}

	n, err := m.active.sink.Write(data)
	m.active.bytesWritten += int64(n)
	if err == nil && n != len(data) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	if err != nil {
		name := m.active.desc.FileName
		wrapped := fmt.Errorf("%w: %s: %v", domain.ErrSinkWrite, name, err)
		m.releaseLocked(domain.ReturnSinkWriteError, wrapped, false)
		return wrapped
	}
	return nil
}

// releaseLocked closes the active sink, reports the failure and clears the session
func (m *SessionManager) releaseLocked(code domain.ReturnCode, cause error, aborted bool) {
	session := m.active
	if session == nil {
		return
	}
	m.active = nil

	if err := session.sink.Close(); err != nil {
		m.logger.Warn("Failed to close sink",
			zap.Uint32("file_index", session.desc.FileIndex),
			zap.String("location", session.sink.Location()),
			zap.Error(err))
	}

	m.failed++
	m.observer.Failed(domain.FailureEvent{
		Position:     m.position,
		FileIndex:    session.desc.FileIndex,
		FileName:     session.desc.FileName,
		BytesWritten: session.bytesWritten,
		Code:         code,
		Aborted:      aborted,
		Err:          cause,
	})
}

func (m *SessionManager) idleViolation(pkt domain.Packet) {
	m.violations++
	m.logger.Debug("Packet without active session ignored",
		zap.String("event", string(pkt.Event)),
		zap.Uint32("file_index", pkt.FileIndex))
}

// Speed returns the average transfer speed in bytes per millisecond, which is
// reported as KB/s. Equal timestamps yield 0.
func Speed(fileSize int64, startMs, endMs int64) float64 {
	elapsed := endMs - startMs
	if elapsed <= 0 {
		return 0
	}
	return float64(fileSize) / float64(elapsed)
}
