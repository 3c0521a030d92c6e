package infrastructure

import (
	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// LogObserver writes session telemetry to the download log
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a log observer; a nil logger discards everything
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Started(event domain.StartEvent) {
	o.logger.Info("download_started",
		zap.Stringer("position", event.Position),
		zap.Uint32("file_index", event.Descriptor.FileIndex),
		zap.String("file_name", event.Descriptor.FileName),
		zap.Int64("total_size", event.Descriptor.FileSize),
		zap.String("location", event.Location))
}

func (o *LogObserver) Progress(event domain.ProgressEvent) {
	o.logger.Debug("download_progress",
		zap.Stringer("position", event.Position),
		zap.Uint32("file_index", event.FileIndex),
		zap.String("file_name", event.FileName),
		zap.Float64("percent", event.Percent),
		zap.Int64("total_size", event.TotalSize))
}

func (o *LogObserver) Completed(event domain.SummaryEvent) {
	o.logger.Info("download_completed",
		zap.Stringer("position", event.Position),
		zap.Uint32("file_index", event.FileIndex),
		zap.String("file_name", event.FileName),
		zap.String("location", event.Location),
		zap.Int64("bytes_written", event.BytesWritten),
		zap.Int64("total_size", event.TotalSize),
		zap.Duration("duration", event.Duration),
		zap.Float64("average_speed_kbps", event.AverageSpeedKBps))
}

func (o *LogObserver) Failed(event domain.FailureEvent) {
	msg := "download_failed"
	if event.Aborted {
		msg = "download_aborted"
	}
	o.logger.Warn(msg,
		zap.Stringer("position", event.Position),
		zap.Uint32("file_index", event.FileIndex),
		zap.String("file_name", event.FileName),
		zap.Int64("bytes_written", event.BytesWritten),
		zap.Stringer("code", event.Code),
		zap.Error(event.Err))
}
