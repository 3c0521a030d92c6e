package domain

import (
	"errors"
	"fmt"
)

// DownloadEvent marks the position of a packet within a file transfer
type DownloadEvent string

const (
	EventStart    DownloadEvent = "start"
	EventTransfer DownloadEvent = "transfer"
	EventEnd      DownloadEvent = "end"
)

// ValidateEvent checks if a download event is valid
func ValidateEvent(event DownloadEvent) bool {
	return event == EventStart || event == EventTransfer || event == EventEnd
}

// Packet is the metadata delivered with every data chunk of a file transfer
type Packet struct {
	Event           DownloadEvent `json:"event"`
	FileIndex       uint32        `json:"file_index"`
	FileSize        int64         `json:"file_size"`
	ProgressPercent float64       `json:"progress_percent"`
}

// PacketCallback is the function a transport invokes for every packet of a
// mount position. It never panics and always reports a ReturnCode.
type PacketCallback func(pkt Packet, data []byte) ReturnCode

// ReturnCode is the result of handling one packet
type ReturnCode int

const (
	ReturnSuccess ReturnCode = iota
	ReturnUnknownFileIndex
	ReturnSinkOpenError
	ReturnSinkWriteError
	ReturnProtocolViolation
	ReturnInvalidPacket
	ReturnInternal
)

var returnCodeNames = map[ReturnCode]string{
	ReturnSuccess:           "success",
	ReturnUnknownFileIndex:  "unknown_file_index",
	ReturnSinkOpenError:     "sink_open_error",
	ReturnSinkWriteError:    "sink_write_error",
	ReturnProtocolViolation: "protocol_violation",
	ReturnInvalidPacket:     "invalid_packet",
	ReturnInternal:          "internal",
}

// String returns the snake_case name of the code
func (c ReturnCode) String() string {
	if name, ok := returnCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("return_code(%d)", int(c))
}

// OK reports whether the code signals success
func (c ReturnCode) OK() bool {
	return c == ReturnSuccess
}

var (
	ErrUnknownFileIndex  = errors.New("unknown file index")
	ErrSinkOpen          = errors.New("sink open failed")
	ErrSinkWrite         = errors.New("sink write failed")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrInvalidPacket     = errors.New("invalid packet")
	ErrNoActiveSession   = errors.New("no active session")
)

// ReturnCodeFromError maps an error chain to the code reported to the transport
func ReturnCodeFromError(err error) ReturnCode {
	switch {
	case err == nil:
		return ReturnSuccess
	case errors.Is(err, ErrUnknownFileIndex):
		return ReturnUnknownFileIndex
	case errors.Is(err, ErrSinkOpen):
		return ReturnSinkOpenError
	case errors.Is(err, ErrSinkWrite):
		return ReturnSinkWriteError
	case errors.Is(err, ErrProtocolViolation):
		return ReturnProtocolViolation
	case errors.Is(err, ErrInvalidPacket):
		return ReturnInvalidPacket
	default:
		return ReturnInternal
	}
}

// SessionState is the state of a mount position's session manager
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateReceiving SessionState = "receiving"
)
