package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"vidflow/domain/wav"

	"github.com/sirupsen/logrus"
)

// Decoder converts any FFmpeg-readable source (file path or URL) to float PCM
type Decoder struct {
	ffmpegPath string
	runner     CommandRunner
	log        *logrus.Entry
}

// DecoderOption is a functional option for configuring Decoder
type DecoderOption func(*Decoder)

// WithDecoderFFmpegPath sets a custom ffmpeg executable path
func WithDecoderFFmpegPath(path string) DecoderOption {
	return func(d *Decoder) {
		if path != "" {
			d.ffmpegPath = path
		}
	}
}

// WithDecoderCommandRunner sets a custom command runner (for testing)
func WithDecoderCommandRunner(runner CommandRunner) DecoderOption {
	return func(d *Decoder) {
		d.runner = runner
	}
}

// NewDecoder creates a new FFmpeg-based PCM decoder
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
		log:        logrus.WithField("component", "ffmpeg"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Decode reads the audio track of location, resampled to sampleRate and channels
func (d *Decoder) Decode(ctx context.Context, location string, sampleRate, channels int) (wav.Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return wav.Buffer{}, fmt.Errorf("invalid output format %d Hz, %d channels", sampleRate, channels)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", location,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}

	d.log.WithFields(logrus.Fields{
		"function": "Decode",
		"source":   location,
	}).Debug("decoding source audio")

	out, err := d.runner.Output(ctx, d.ffmpegPath, args...)
	if err != nil {
		return wav.Buffer{}, fmt.Errorf("ffmpeg decode %s: %w", location, err)
	}

	return interleavedToBuffer(out, sampleRate, channels), nil
}

func interleavedToBuffer(raw []byte, sampleRate, channels int) wav.Buffer {
	frameBytes := 4 * channels
	frames := len(raw) / frameBytes

	buf := wav.Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			offset := i*frameBytes + c*4
			buf.Channels[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[offset:]))
		}
	}
	return buf
}
