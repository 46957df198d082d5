package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
audio:
  crossfade_ms: 50
defaults:
  preset: music
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.CrossfadeMS != 50 {
		t.Errorf("CrossfadeMS = %d, want 50", cfg.Audio.CrossfadeMS)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want default 48000", cfg.Audio.SampleRate)
	}
	if cfg.Defaults.Strength != 100 {
		t.Errorf("Strength = %v, want default 100", cfg.Defaults.Strength)
	}
	if cfg.Defaults.Preset != "music" {
		t.Errorf("Preset = %q, want music", cfg.Defaults.Preset)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "audio: [not, a, map")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Export.Delivery = DeliveryDrive
	cfg.Google.ExportFolderID = "folder-123"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Google.ExportFolderID != "folder-123" || loaded.Export.Delivery != DeliveryDrive {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 44100 }, "audio.sample_rate"},
		{"bad channels", func(c *Config) { c.Audio.Channels = 6 }, "audio.channels"},
		{"zero crossfade", func(c *Config) { c.Audio.CrossfadeMS = 0 }, "audio.crossfade_ms"},
		{"drive without folder", func(c *Config) { c.Export.Delivery = DeliveryDrive }, "export_folder_id"},
		{"unknown delivery", func(c *Config) { c.Export.Delivery = "email" }, "export.delivery"},
		{"unknown preset", func(c *Config) { c.Defaults.Preset = "karaoke" }, "defaults.preset"},
		{"strength too high", func(c *Config) { c.Defaults.Strength = 150 }, "defaults.strength"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad recipient", func(c *Config) {
			c.Email.FromAddress = "media@example.com"
			c.Email.Recipients = []string{"not an address"}
		}, "email.recipients"},
		{"recipients without sender", func(c *Config) { c.Email.Recipients = []string{"john@example.com"} }, "email.from_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigManager_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	mgr := NewConfigManager(cfg, path)

	if err := mgr.Set("Audio.Crossfade_MS", " 45 "); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := mgr.Get("audio.crossfade_ms")
	if err != nil || got != "45" {
		t.Errorf("Get() = %q, %v; want 45", got, err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Audio.CrossfadeMS != 45 {
		t.Errorf("saved CrossfadeMS = %d, want 45", loaded.Audio.CrossfadeMS)
	}

	if err := mgr.Set("google.prune_oldest", "true"); err != nil {
		t.Fatalf("Set(bool) error = %v", err)
	}
	if got, _ := mgr.Get("google.prune_oldest"); got != "true" {
		t.Errorf("Get(google.prune_oldest) = %q, want true", got)
	}
}

func TestConfigManager_RejectsInvalid(t *testing.T) {
	cfg := Default()
	mgr := NewConfigManager(cfg, filepath.Join(t.TempDir(), "config.yaml"))

	if err := mgr.Set("audio.nonexistent", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(unknown) error = %v, want ErrUnknownKey", err)
	}
	if err := mgr.Set("audio.channels", "two"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(non-integer) error = %v, want ErrInvalidValue", err)
	}
	if err := mgr.Set("defaults.strength", "400"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(out of range) error = %v, want ErrInvalidValue", err)
	}
	if cfg.Defaults.Strength != 100 {
		t.Errorf("rejected value leaked into config: %v", cfg.Defaults.Strength)
	}
	if err := mgr.Set("google.prune_oldest", "sometimes"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(non-bool) error = %v, want ErrInvalidValue", err)
	}
	if _, err := mgr.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(unknown) error = %v", err)
	}
}

func TestConfigManager_ListSorted(t *testing.T) {
	mgr := NewConfigManager(Default(), "")
	settings := mgr.List()
	if len(settings) != len(fields) {
		t.Fatalf("List() returned %d settings, want %d", len(settings), len(fields))
	}
	for i := 1; i < len(settings); i++ {
		if settings[i-1].Key >= settings[i].Key {
			t.Errorf("List() not sorted at %d: %s >= %s", i, settings[i-1].Key, settings[i].Key)
		}
	}
}

func TestConfigManager_RecipientList(t *testing.T) {
	cfg := Default()
	cfg.Email.FromAddress = "media@example.com"
	mgr := NewConfigManager(cfg, filepath.Join(t.TempDir(), "config.yaml"))

	if err := mgr.Set("email.recipients", "John Doe <john@example.com>, alice@example.com,"); err != nil {
		t.Fatalf("Set(list) error = %v", err)
	}
	if len(cfg.Email.Recipients) != 2 {
		t.Fatalf("Recipients = %v, want 2 entries", cfg.Email.Recipients)
	}
	if got, _ := mgr.Get("email.recipients"); got != "John Doe <john@example.com>,alice@example.com" {
		t.Errorf("Get(email.recipients) = %q", got)
	}

	if err := mgr.Set("email.recipients", "john@"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(bad recipient) error = %v, want ErrInvalidValue", err)
	}
	if len(cfg.Email.Recipients) != 2 {
		t.Errorf("failed Set changed recipients to %v", cfg.Email.Recipients)
	}

	if err := mgr.Set("email.recipients", ""); err != nil {
		t.Fatalf("Set(empty) error = %v", err)
	}
	if cfg.Email.Enabled() {
		t.Error("empty recipients should disable email")
	}
}
