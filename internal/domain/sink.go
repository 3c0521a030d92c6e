package domain

import "io"

// Sink is the output resource a download session writes into
type Sink interface {
	io.WriteCloser

	// Location returns where the sink's bytes end up (a path or an object key)
	Location() string
}

// SinkOpener creates sinks for files resolved from a media listing
type SinkOpener interface {
	Open(desc MediaFileDescriptor) (Sink, error)
}

// FileLister resolves file indexes against the last-known listing of one mount position
type FileLister interface {
	Lookup(fileIndex uint32) (MediaFileDescriptor, bool)
}
