package domain

import "time"

// ProgressEvent is emitted for every transfer packet of an active session
type ProgressEvent struct {
	Position  MountPosition `json:"position"`
	FileIndex uint32        `json:"file_index"`
	FileName  string        `json:"file_name"`
	Percent   float64       `json:"percent"`
	TotalSize int64         `json:"total_size"`
}

// StartEvent is emitted when a session opens its sink
type StartEvent struct {
	Position   MountPosition       `json:"position"`
	Descriptor MediaFileDescriptor `json:"descriptor"`
	Location   string              `json:"location"`
}

// SummaryEvent is emitted exactly once when a session ends cleanly
type SummaryEvent struct {
	Position         MountPosition `json:"position"`
	FileIndex        uint32        `json:"file_index"`
	FileName         string        `json:"file_name"`
	Location         string        `json:"location"`
	BytesWritten     int64         `json:"bytes_written"`
	TotalSize        int64         `json:"total_size"`
	Duration         time.Duration `json:"duration"`
	AverageSpeedKBps float64       `json:"average_speed_kbps"`
}

// FailureEvent is emitted when a session ends without a summary
type FailureEvent struct {
	Position     MountPosition `json:"position"`
	FileIndex    uint32        `json:"file_index"`
	FileName     string        `json:"file_name"`
	BytesWritten int64         `json:"bytes_written"`
	Code         ReturnCode    `json:"code"`
	Aborted      bool          `json:"aborted"`
	Err          error         `json:"-"`
}

// Observer receives session telemetry. Implementations must not block for long:
// they run on the transport's delivery path.
type Observer interface {
	Started(event StartEvent)
	Progress(event ProgressEvent)
	Completed(event SummaryEvent)
	Failed(event FailureEvent)
}

// Observers fans events out to several observers in order
type Observers []Observer

func (o Observers) Started(event StartEvent) {
	for _, obs := range o {
		obs.Started(event)
	}
}

func (o Observers) Progress(event ProgressEvent) {
	for _, obs := range o {
		obs.Progress(event)
	}
}

func (o Observers) Completed(event SummaryEvent) {
	for _, obs := range o {
		obs.Completed(event)
	}
}

func (o Observers) Failed(event FailureEvent) {
	for _, obs := range o {
		obs.Failed(event)
	}
}
