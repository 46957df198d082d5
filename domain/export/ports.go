package export

import "context"

// Downloader hands finished artifacts to the user.
// This is a port - implementations write to disk or upload to cloud storage.
type Downloader interface {
	// Deliver stores the artifact and returns where it can be found.
	Deliver(ctx context.Context, artifact Artifact) (string, error)
}

// Severity classifies a toast notification.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// StatusReporter renders export progress to the user.
type StatusReporter interface {
	Title(title string)
	Progress(percent float64)
	Status(text string)
	Toast(message string, severity Severity)
}

// Transcoder is the external transcoding engine with its own working storage.
type Transcoder interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
	// Exec runs the engine with args relative to its working storage.
	// onProgress receives the completed fraction in [0, 1].
	Exec(ctx context.Context, args []string, onProgress func(ratio float64)) error
}

// TranscoderLoader performs the one-time engine load.
type TranscoderLoader interface {
	Load(ctx context.Context) (Transcoder, error)
}

// SourceReader reads local source bytes for re-encoding.
type SourceReader interface {
	ReadSource(path string) ([]byte, error)
}
