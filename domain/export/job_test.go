package export

import (
	"testing"

	"vidflow/domain/preset"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name     string
		basename string
		preset   preset.ID
		ext      string
		want     string
	}{
		{"speech wav", "sermon", preset.SpeechFocus, "wav", "sermon_speech.wav"},
		{"music mp4", "concert", preset.MusicSoften, "mp4", "concert_music.mp4"},
		{"off", "raw", preset.Off, "mp4", "raw_original.mp4"},
		{"fallback", "talk", preset.SpeechFocus, "ogg", "talk_speech.ogg"},
		{"empty basename", "", preset.MusicSoften, "wav", "media_music.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.basename, tt.preset, tt.ext); got != tt.want {
				t.Errorf("OutputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusActive(t *testing.T) {
	active := map[Status]bool{
		Idle:       false,
		Preparing:  true,
		Running:    true,
		Cancelling: true,
		Completed:  false,
		Failed:     false,
	}
	for status, want := range active {
		if got := status.Active(); got != want {
			t.Errorf("%v.Active() = %v, want %v", status, got, want)
		}
	}
}
