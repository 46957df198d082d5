package media

import (
	"context"
	"time"
)

// Event is a notification raised by a media element.
type Event int

const (
	EventLoadedMetadata Event = iota
	EventSeeked
	EventEnded
	EventError
)

func (e Event) String() string {
	switch e {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventSeeked:
		return "seeked"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Element is the playable media source. This is a port - implementations
// decode the loaded media and drive the audio engine while playing.
type Element interface {
	CurrentTime() time.Duration
	Duration() time.Duration
	Paused() bool
	// MetadataLoaded reports whether Duration is known.
	MetadataLoaded() bool
	Play(ctx context.Context) error
	Pause()
	// Seek requests a position change. EventSeeked fires once it completes.
	Seek(t time.Duration)
	// Subscribe registers for one event. The returned channel receives a value
	// each time the event fires until the returned cancel func is called.
	Subscribe(ev Event) (<-chan struct{}, func())
}

// Await waits for a single occurrence of ev. The subscription is made before
// trigger runs and is always removed on return.
func Await(ctx context.Context, el Element, ev Event, trigger func()) error {
	ch, cancel := el.Subscribe(ev)
	defer cancel()

	if trigger != nil {
		trigger()
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SeekAndWait seeks and waits for the seek to complete.
func SeekAndWait(ctx context.Context, el Element, t time.Duration) error {
	return Await(ctx, el, EventSeeked, func() { el.Seek(t) })
}

// WaitMetadata returns once the element's duration is known.
func WaitMetadata(ctx context.Context, el Element) error {
	ch, cancel := el.Subscribe(EventLoadedMetadata)
	defer cancel()

	if el.MetadataLoaded() {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
