package export

import (
	"fmt"
	"time"

	"vidflow/domain/preset"
)

// Kind is the type of export.
type Kind int

const (
	AudioOnly Kind = iota
	FullVideo
)

func (k Kind) String() string {
	if k == FullVideo {
		return "video"
	}
	return "audio"
}

// Status is the lifecycle state of an export job.
type Status int

const (
	Idle Status = iota
	Preparing
	Running
	Cancelling
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Active reports whether a job in this status blocks new jobs.
func (s Status) Active() bool {
	return s == Preparing || s == Running || s == Cancelling
}

// Disposition explains how a completed job ended.
type Disposition int

const (
	Delivered Disposition = iota
	// Degraded means the artifact was delivered in a fallback format.
	Degraded
	Cancelled
	// Undelivered means the job failed and nothing reached the user.
	Undelivered
)

func (d Disposition) String() string {
	switch d {
	case Degraded:
		return "degraded"
	case Cancelled:
		return "cancelled"
	case Undelivered:
		return "undelivered"
	default:
		return "delivered"
	}
}

// Job is a snapshot of the current or last export.
type Job struct {
	ID              string
	Kind            Kind
	Preset          preset.ID
	Status          Status
	Progress        float64
	CancelRequested bool
	StartedAt       time.Time
}

// Outcome is the settled result of an export.
type Outcome struct {
	Job         Job
	Disposition Disposition
	Artifact    *Artifact
	Location    string
	Err         error
}

// Artifact is a named byte buffer handed to the download boundary.
type Artifact struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// OutputName builds "<basename>_<preset>.<ext>", with "original" when no preset is active.
func OutputName(basename string, id preset.ID, ext string) string {
	if basename == "" {
		basename = "media"
	}
	return fmt.Sprintf("%s_%s.%s", basename, id.FileKey(), ext)
}
