package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidflow/domain/export"
	"vidflow/domain/failure"
	"vidflow/domain/preset"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/filesystem"

	"github.com/sirupsen/logrus"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		location string
		wantErr  string
	}{
		{"local video", "/recordings/talk.mp4", ""},
		{"remote audio", "https://cdn.example.com/talk.mp3", ""},
		{"empty", "", "source location is required"},
		{"url without host", "https:///talk.mp4", "has no host"},
		{"unsupported type", "slides.pdf", "unsupported source type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSource(tt.location)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("parseSource() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("parseSource() error = %v, want ValidationError", err)
			}
			if !strings.Contains(ve.Message, tt.wantErr) {
				t.Errorf("message = %q, want mention of %q", ve.Message, tt.wantErr)
			}
		})
	}
}

func TestParsePreset(t *testing.T) {
	id, err := parsePreset("music")
	if err != nil || id != preset.MusicSoften {
		t.Errorf("parsePreset(music) = %v, %v", id, err)
	}

	_, err = parsePreset("karaoke")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Suggestion != "vidflow presets" {
		t.Errorf("parsePreset(karaoke) error = %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Message: "bad value", Suggestion: "vidflow config list"}
	want := "bad value\n\nTo fix this, run:\n  vidflow config list"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if (&ValidationError{Message: "bare"}).Error() != "bare" {
		t.Error("error without suggestion should be the message alone")
	}
}

func TestExplain(t *testing.T) {
	if explain(nil) != nil {
		t.Error("explain(nil) should be nil")
	}

	other := errors.New("disk full")
	if explain(other) != other {
		t.Error("errors outside the taxonomy pass through")
	}

	wrapped := fmt.Errorf("export: %w", failure.ErrExportBusy)
	got := explain(wrapped)
	if got.Error() != failure.Message(failure.ErrExportBusy) {
		t.Errorf("explain() = %q, want user message", got.Error())
	}
	if !errors.Is(got, failure.ErrExportBusy) {
		t.Error("explain() must keep the error chain")
	}
}

func TestRunPresets(t *testing.T) {
	var out bytes.Buffer
	if err := RunPresetsWithDependencies(150, true, &out); err != nil {
		t.Fatalf("RunPresetsWithDependencies() error = %v", err)
	}
	text := out.String()

	if !strings.Contains(text, "Strength: 100%") {
		t.Errorf("strength should be clamped to 100:\n%s", text)
	}
	for _, id := range preset.All() {
		if !strings.Contains(text, id.Key()) {
			t.Errorf("output missing preset %q", id.Key())
		}
	}
	if !strings.Contains(text, "off: (none, audio is re-encoded unfiltered)") {
		t.Errorf("off should have no filter chain:\n%s", text)
	}
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	cfg := config.Default()
	cfg.Log.Format = "json"
	if err := configureLogging(cfg, "debug"); err != nil {
		t.Fatalf("configureLogging() error = %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want override debug", logrus.GetLevel())
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter); !ok {
		t.Error("json format should install the JSON formatter")
	}

	if err := configureLogging(nil, ""); err != nil {
		t.Fatalf("configureLogging(nil) error = %v", err)
	}
	if logrus.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want default info", logrus.GetLevel())
	}

	var ve *ValidationError
	if err := configureLogging(cfg, "loud"); !errors.As(err, &ve) {
		t.Errorf("configureLogging(loud) error = %v, want ValidationError", err)
	}
}

func TestRunExport_RejectsStrength(t *testing.T) {
	_, err := RunExportWithDependencies(context.Background(), config.Default(), ExportDependencies{}, ExportInput{
		Kind:     export.AudioOnly,
		Source:   "talk.mp4",
		Preset:   "speech",
		Strength: 120,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "out of range") {
		t.Errorf("error = %v, want strength ValidationError", err)
	}
}

func TestNewDownloader(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Paths.OutputDirectory = t.TempDir()
	d, err := newDownloader(ctx, cfg, "", nil)
	if err != nil {
		t.Fatalf("newDownloader(file) error = %v", err)
	}
	if _, ok := d.(*filesystem.Downloader); !ok {
		t.Errorf("file delivery returned %T", d)
	}

	tests := []struct {
		name     string
		override string
		mutate   func(c *config.Config)
		wantMsg  string
	}{
		{"unknown delivery", "ftp", func(c *config.Config) {}, "unknown delivery"},
		{"drive without folder", config.DeliveryDrive, func(c *config.Config) {}, "needs a folder"},
		{"bad recipient", config.DeliveryDrive, func(c *config.Config) {
			c.Google.ExportFolderID = "folder"
			c.Email.FromAddress = "media@example.com"
			c.Email.Recipients = []string{"john@"}
		}, "email address"},
		{"recipients without sender", config.DeliveryDrive, func(c *config.Config) {
			c.Google.ExportFolderID = "folder"
			c.Email.Recipients = []string{"john@example.com"}
		}, "sender address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(c)
			_, err := newDownloader(ctx, c, tt.override, nil)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("newDownloader() error = %v, want ValidationError", err)
			}
			if !strings.Contains(ve.Message, tt.wantMsg) {
				t.Errorf("message = %q, want mention of %q", ve.Message, tt.wantMsg)
			}
		})
	}
}

func TestPrintOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome *export.Outcome
		want    string
	}{
		{"nothing", nil, ""},
		{"delivered", &export.Outcome{Disposition: export.Delivered, Location: "/exports/talk_speech.wav"}, "Saved: /exports/talk_speech.wav\n"},
		{"cancelled", &export.Outcome{Disposition: export.Cancelled, Err: failure.ErrCancelled}, "Export cancelled.\n"},
		{"failed", &export.Outcome{Disposition: export.Undelivered, Err: failure.ErrTranscodeFailure}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printOutcome(&out, tt.outcome)
			if out.String() != tt.want {
				t.Errorf("printOutcome() = %q, want %q", out.String(), tt.want)
			}
		})
	}
}
