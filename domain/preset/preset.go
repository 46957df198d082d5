package preset

import (
	"fmt"
	"strings"
)

// ID identifies a processing preset. The set of presets is closed.
type ID int

const (
	Off ID = iota
	SpeechFocus
	MusicSoften
)

// All returns every preset in display order.
func All() []ID {
	return []ID{Off, SpeechFocus, MusicSoften}
}

// Key returns the stable key used on the command line and in output names.
func (id ID) Key() string {
	switch id {
	case Off:
		return "off"
	case SpeechFocus:
		return "speech"
	case MusicSoften:
		return "music"
	default:
		return fmt.Sprintf("preset(%d)", int(id))
	}
}

// FileKey returns the suffix used when naming exported files.
// An export with no active preset is named "original".
func (id ID) FileKey() string {
	if id == Off {
		return "original"
	}
	return id.Key()
}

// String returns a human readable preset name.
func (id ID) String() string {
	switch id {
	case Off:
		return "Off"
	case SpeechFocus:
		return "Speech Focus"
	case MusicSoften:
		return "Music Soften"
	default:
		return id.Key()
	}
}

// Active reports whether the preset alters the signal.
func (id ID) Active() bool {
	return id != Off
}

// Parse converts a preset key into an ID.
// Accepts the keys returned by Key and the display names, case-insensitively.
func Parse(s string) (ID, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, id := range All() {
		if normalized == id.Key() || normalized == strings.ToLower(id.String()) {
			return id, nil
		}
	}
	switch normalized {
	case "", "none", "original", "bypass":
		return Off, nil
	case "speech-focus", "speech_focus", "speechfocus":
		return SpeechFocus, nil
	case "music-soften", "music_soften", "musicsoften":
		return MusicSoften, nil
	}
	return Off, fmt.Errorf("unknown preset %q (valid: off, speech, music)", s)
}
