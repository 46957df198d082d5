package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessage_DistinctPerKind(t *testing.T) {
	seen := make(map[string]error)
	for _, m := range messages {
		got := Message(m.err)
		if got == "" {
			t.Errorf("Message(%v) is empty", m.err)
		}
		if prev, ok := seen[got]; ok {
			t.Errorf("Message(%v) duplicates message for %v", m.err, prev)
		}
		seen[got] = m.err
	}
}

func TestMessage_Wrapped(t *testing.T) {
	err := fmt.Errorf("video export: %w: ffmpeg exited 1", ErrTranscodeFailure)
	if got := Message(err); got != Message(ErrTranscodeFailure) {
		t.Errorf("Message(wrapped) = %q", got)
	}
	if !Known(err) {
		t.Error("Known(wrapped) = false")
	}
}

func TestMessage_Unknown(t *testing.T) {
	err := errors.New("disk full")
	if Known(err) {
		t.Error("Known(unknown) = true")
	}
	if got := Message(err); got != "Something went wrong: disk full" {
		t.Errorf("Message(unknown) = %q", got)
	}
	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}
