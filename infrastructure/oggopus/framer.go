package oggopus

import (
	"time"

	"vidflow/domain/graph"
)

// FrameDuration is the Opus packet duration used for capture and monitoring.
const FrameDuration = 20 * time.Millisecond

// FrameSize returns the samples per channel in one packet at sampleRate.
func FrameSize(sampleRate int) int {
	return int(int64(sampleRate) * int64(FrameDuration) / int64(time.Second))
}

// SupportedRate reports whether Opus can encode at sampleRate.
func SupportedRate(sampleRate int) bool {
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}

// Framer regroups engine blocks of any size into fixed-size interleaved frames.
type Framer struct {
	channels int
	size     int
	pending  []float32
}

// NewFramer creates a framer emitting frames of frameSize samples per channel.
func NewFramer(channels, frameSize int) *Framer {
	return &Framer{channels: channels, size: frameSize}
}

// Push appends a block and emits every complete frame. Missing channels are
// filled from the first channel; extra channels are dropped.
func (f *Framer) Push(b graph.Block, emit func(frame []float32) error) error {
	frames := b.Frames()
	for i := 0; i < frames; i++ {
		for c := 0; c < f.channels; c++ {
			src := c
			if src >= len(b) {
				src = 0
			}
			f.pending = append(f.pending, b[src][i])
		}
	}

	frameLen := f.size * f.channels
	for len(f.pending) >= frameLen {
		frame := make([]float32, frameLen)
		copy(frame, f.pending[:frameLen])
		f.pending = f.pending[frameLen:]
		if err := emit(frame); err != nil {
			return err
		}
	}
	return nil
}

// Flush emits any buffered samples padded with silence to a full frame.
func (f *Framer) Flush(emit func(frame []float32) error) error {
	if len(f.pending) == 0 {
		return nil
	}
	frame := make([]float32, f.size*f.channels)
	copy(frame, f.pending)
	f.pending = f.pending[:0]
	return emit(frame)
}
