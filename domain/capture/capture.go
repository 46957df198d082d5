package capture

import (
	"errors"
	"time"

	"vidflow/domain/graph"
	"vidflow/domain/wav"
)

// ErrSinkClosed is returned when a session is used after Stop.
var ErrSinkClosed = errors.New("recording sink closed")

// Session is an active recording of a tap into compressed chunks.
type Session interface {
	// Chunks delivers encoded container bytes in order. It is closed once Stop
	// has flushed the final chunk.
	Chunks() <-chan []byte
	// Errors reports sink failures that occur while recording.
	Errors() <-chan error
	// Stop ends the recording and flushes remaining data into Chunks.
	Stop() error
	// MimeType is the container media type of the chunks.
	MimeType() string
	// Extension is the native file extension of the container.
	Extension() string
}

// Service turns a live tap into a recording session. This is a port -
// implementations provide the compressed intermediate format.
type Service interface {
	Open(tap graph.Tap) (Session, error)
}

// Decoder converts an assembled recording back into PCM.
type Decoder interface {
	Decode(blob []byte) (wav.Buffer, error)
}

// Result is a completed capture.
type Result struct {
	Blob      []byte
	MimeType  string
	Extension string
	Duration  time.Duration
}
