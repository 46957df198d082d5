package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidflow/domain/export"

	"github.com/sirupsen/logrus"
)

// Loader performs the one-time transcoding engine load: it verifies the
// ffmpeg binaries and creates a private working directory.
type Loader struct {
	ffmpegPath  string
	ffprobePath string
	workRoot    string
	runner      CommandRunner
	log         *logrus.Entry
}

// LoaderOption is a functional option for configuring Loader
type LoaderOption func(*Loader)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) LoaderOption {
	return func(l *Loader) {
		if path != "" {
			l.ffmpegPath = path
		}
	}
}

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) LoaderOption {
	return func(l *Loader) {
		if path != "" {
			l.ffprobePath = path
		}
	}
}

// WithWorkRoot sets the directory under which working storage is created
func WithWorkRoot(dir string) LoaderOption {
	return func(l *Loader) {
		l.workRoot = dir
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) LoaderOption {
	return func(l *Loader) {
		l.runner = runner
	}
}

// NewLoader creates a new transcoding engine loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
		log:         logrus.WithField("component", "ffmpeg"),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// VerifyInstalled checks that ffmpeg is available
func (l *Loader) VerifyInstalled(ctx context.Context) error {
	if _, err := l.runner.Output(ctx, l.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`
func (l *Loader) Version(ctx context.Context) (string, error) {
	out, err := l.runner.Output(ctx, l.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// Load implements export.TranscoderLoader
func (l *Loader) Load(ctx context.Context) (export.Transcoder, error) {
	if err := l.VerifyInstalled(ctx); err != nil {
		return nil, err
	}

	if l.workRoot != "" {
		if err := os.MkdirAll(l.workRoot, 0755); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(l.workRoot, "vidflow-transcode-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working storage: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"function": "Load",
		"work_dir": dir,
	}).Info("transcoding engine loaded")

	return &Transcoder{
		dir:         dir,
		ffmpegPath:  l.ffmpegPath,
		ffprobePath: l.ffprobePath,
		runner:      l.runner,
		log:         l.log,
	}, nil
}

// Transcoder runs ffmpeg against files in a private working directory
type Transcoder struct {
	dir         string
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	log         *logrus.Entry
}

// Dir returns the working directory
func (t *Transcoder) Dir() string {
	return t.dir
}

func (t *Transcoder) path(name string) string {
	return filepath.Join(t.dir, filepath.Base(name))
}

// WriteFile stores data in working storage
func (t *Transcoder) WriteFile(name string, data []byte) error {
	return os.WriteFile(t.path(name), data, 0644)
}

// ReadFile reads a file from working storage
func (t *Transcoder) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(t.path(name))
}

// DeleteFile removes a file from working storage. Missing files are not an error.
func (t *Transcoder) DeleteFile(name string) error {
	err := os.Remove(t.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close removes the working directory
func (t *Transcoder) Close() error {
	return os.RemoveAll(t.dir)
}

// Exec runs ffmpeg with args resolved against working storage and reports
// progress from ffmpeg's machine-readable progress stream
func (t *Transcoder) Exec(ctx context.Context, args []string, onProgress func(ratio float64)) error {
	total := t.probeDuration(ctx, inputName(args))

	full := append([]string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
	}, args...)

	t.log.WithFields(logrus.Fields{
		"function": "Exec",
		"args":     strings.Join(args, " "),
		"duration": total.String(),
	}).Debug("running ffmpeg")

	tracker := progressTracker{total: total, onProgress: onProgress}
	if err := t.runner.Stream(ctx, t.dir, t.ffmpegPath, full, tracker.line); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

func (t *Transcoder) probeDuration(ctx context.Context, name string) time.Duration {
	if name == "" {
		return 0
	}
	out, err := t.runner.Output(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		t.path(name),
	)
	if err != nil {
		t.log.WithError(err).Warn("could not probe input duration; progress will jump at completion")
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func inputName(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}

// progressTracker converts `-progress` key=value lines into completion ratios
type progressTracker struct {
	total      time.Duration
	onProgress func(float64)
}

func (p *progressTracker) line(s string) {
	if p.onProgress == nil {
		return
	}
	key, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us", "out_time_ms":
		if p.total <= 0 {
			return
		}
		// Both keys carry microseconds.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return
		}
		ratio := float64(time.Duration(us)*time.Microsecond) / float64(p.total)
		if ratio > 1 {
			ratio = 1
		}
		p.onProgress(ratio)
	case "progress":
		if value == "end" {
			p.onProgress(1)
		}
	}
}

var (
	_ export.TranscoderLoader = (*Loader)(nil)
	_ export.Transcoder       = (*Transcoder)(nil)
)
