package app

import (
	"bytes"
	"errors"
	"sync"

	"github.com/yourusername/mediapull/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

type fakeLister map[uint32]domain.MediaFileDescriptor

func (l fakeLister) Lookup(fileIndex uint32) (domain.MediaFileDescriptor, bool) {
	d, ok := l[fileIndex]
	return d, ok
}

type fakeSink struct {
	name     string
	buf      bytes.Buffer
	closed   bool
	writeErr error
	closeErr error
	panicMsg string
}

func (s *fakeSink) Write(p []byte) (int, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.buf.Write(p)
}

func (s *fakeSink) Close() error {
	s.closed = true
	return s.closeErr
}

func (s *fakeSink) Location() string { return s.name }

// fakeOpener hands out fakeSinks and records the order of opens and closes
type fakeOpener struct {
	openErr  error
	writeErr error
	closeErr error
	panicMsg string

	sinks []*fakeSink
}

func (o *fakeOpener) Open(desc domain.MediaFileDescriptor) (domain.Sink, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	for _, s := range o.sinks {
		if !s.closed {
			return nil, errors.New("previous sink still open")
		}
	}
	s := &fakeSink{
		name:     desc.FileName,
		writeErr: o.writeErr,
		closeErr: o.closeErr,
		panicMsg: o.panicMsg,
	}
	o.sinks = append(o.sinks, s)
	return s, nil
}

func (o *fakeOpener) last() *fakeSink {
	if len(o.sinks) == 0 {
		return nil
	}
	return o.sinks[len(o.sinks)-1]
}

type recordingObserver struct {
	mu        sync.Mutex
	started   []domain.StartEvent
	progress  []domain.ProgressEvent
	completed []domain.SummaryEvent
	failed    []domain.FailureEvent
}

func (r *recordingObserver) Started(e domain.StartEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, e)
}

func (r *recordingObserver) Progress(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, e)
}

func (r *recordingObserver) Completed(e domain.SummaryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, e)
}

func (r *recordingObserver) Failed(e domain.FailureEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, e)
}

func (r *recordingObserver) counts() (started, completed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started), len(r.completed), len(r.failed)
}

func testListing() fakeLister {
	return fakeLister{
		1: {Position: domain.MountPositionPayloadPort1, FileIndex: 1, FileName: "DJI_0001.JPG", FileSize: 1000, FileType: domain.FileTypeJPEG},
		2: {Position: domain.MountPositionPayloadPort1, FileIndex: 2, FileName: "DJI_0002.MP4", FileSize: 1024000, FileType: domain.FileTypeMP4},
	}
}

// memoryRecordRepo is an in-memory DownloadRecordRepository
type memoryRecordRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.DownloadRecord
	createErr error
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{records: make(map[string]*domain.DownloadRecord)}
}

func (r *memoryRecordRepo) Create(record *domain.DownloadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *memoryRecordRepo) Update(record *domain.DownloadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *memoryRecordRepo) FindByID(id string) (*domain.DownloadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryRecordRepo) FindAll(filters map[string]interface{}) ([]*domain.DownloadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DownloadRecord
	for _, rec := range r.records {
		if status, ok := filters["status"]; ok && string(rec.Status) != status {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRecordRepo) GetStats() (*domain.DownloadStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.DownloadStats{Total: int64(len(r.records))}
	for _, rec := range r.records {
		switch rec.Status {
		case domain.StatusReceiving:
			stats.Receiving++
		case domain.StatusCompleted:
			stats.Completed++
			stats.BytesWritten += rec.BytesWritten
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusAborted:
			stats.Aborted++
		}
	}
	return stats, nil
}
