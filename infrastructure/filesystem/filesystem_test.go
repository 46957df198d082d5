package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidflow/domain/export"
)

func TestChecker_ReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewChecker()
	if !c.Exists(path) || c.Exists(filepath.Join(dir, "missing.mp4")) {
		t.Error("Exists() gave the wrong answer")
	}

	data, err := c.ReadSource(path)
	if err != nil || string(data) != "0123456789" {
		t.Errorf("ReadSource() = %q, %v", data, err)
	}

	c.maxBytes = 4
	if _, err := c.ReadSource(path); err == nil || !strings.Contains(err.Error(), "limit") {
		t.Errorf("ReadSource() over limit error = %v", err)
	}
	if _, err := c.ReadSource(dir); err == nil {
		t.Error("ReadSource(dir) should fail")
	}
}

func TestDownloader_Deliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := NewDownloader(dir)

	artifact := export.Artifact{Bytes: []byte("RIFF"), Filename: "talk_speech.wav", MimeType: "audio/wav"}
	path, err := d.Deliver(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if path != filepath.Join(dir, "talk_speech.wav") {
		t.Errorf("path = %s", path)
	}

	artifact.Bytes = []byte("RIFF2")
	if _, err := d.Deliver(context.Background(), artifact); err != nil {
		t.Fatalf("second Deliver() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "RIFF2" {
		t.Errorf("file not replaced: %q", data)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestDownloader_ConfinesToDirectory(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(dir)

	path, err := d.Deliver(context.Background(), export.Artifact{Bytes: []byte("x"), Filename: "../../escape.wav"})
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("artifact escaped output directory: %s", path)
	}
}

func TestDownloader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDownloader(t.TempDir()).Deliver(ctx, export.Artifact{Filename: "a.wav"}); err == nil {
		t.Error("Deliver() should honour a cancelled context")
	}
}
