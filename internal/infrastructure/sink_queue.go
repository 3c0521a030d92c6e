package infrastructure

import (
	"fmt"
	"sync"

	"github.com/yourusername/mediapull/internal/domain"
)

// QueuedSinkOpener decouples the packet delivery path from disk latency: every
// sink it opens copies writes onto a bounded queue drained by a dedicated
// goroutine. When the queue is full, Write blocks until there is room.
type QueuedSinkOpener struct {
	inner domain.SinkOpener
	depth int
}

// NewQueuedSinkOpener wraps inner with a queue of depth pending writes
func NewQueuedSinkOpener(inner domain.SinkOpener, depth int) *QueuedSinkOpener {
	if depth < 1 {
		depth = 1
	}
	return &QueuedSinkOpener{inner: inner, depth: depth}
}

// Open opens the inner sink and starts its writer goroutine
func (o *QueuedSinkOpener) Open(desc domain.MediaFileDescriptor) (domain.Sink, error) {
	sink, err := o.inner.Open(desc)
	if err != nil {
		return nil, err
	}

	qs := &queuedSink{
		inner: sink,
		queue: make(chan []byte, o.depth),
		done:  make(chan struct{}),
	}
	go qs.drain()
	return qs, nil
}

type queuedSink struct {
	inner domain.Sink
	queue chan []byte
	done  chan struct{}

	sendMu sync.Mutex // guards closed and sends on queue
	closed bool

	mu  sync.Mutex // guards err
	err error
}

// Write queues a copy of p. Errors from earlier writes are returned here.
func (s *queuedSink) Write(p []byte) (int, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("write to closed sink")
	}
	if err := s.firstErr(); err != nil {
		return 0, err
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	s.queue <- buf
	return len(p), nil
}

// Close waits for queued writes to finish, then closes the inner sink
func (s *queuedSink) Close() error {
	s.sendMu.Lock()
	if s.closed {
		s.sendMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.sendMu.Unlock()

	<-s.done

	closeErr := s.inner.Close()
	if err := s.firstErr(); err != nil {
		return err
	}
	return closeErr
}

func (s *queuedSink) Location() string {
	return s.inner.Location()
}

func (s *queuedSink) drain() {
	defer close(s.done)

	for buf := range s.queue {
		if s.firstErr() != nil {
			// keep draining so writers never block on a dead sink
			continue
		}

		if _, err := s.inner.Write(buf); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}
}

func (s *queuedSink) firstErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
