package oggopus

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"vidflow/domain/capture"
	"vidflow/domain/wav"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"gopkg.in/hraban/opus.v2"
)

// maxFrameSamples is the longest Opus packet (120 ms) at 48 kHz.
const maxFrameSamples = 5760

var opusTags = []byte("OpusTags")

// Decoder implements capture.Decoder for Ogg/Opus recordings.
type Decoder struct{}

var _ capture.Decoder = (*Decoder)(nil)

// NewDecoder creates an Ogg/Opus decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses an Ogg/Opus blob into float PCM.
func (d *Decoder) Decode(blob []byte) (wav.Buffer, error) {
	reader, header, err := oggreader.NewWith(bytes.NewReader(blob))
	if err != nil {
		return wav.Buffer{}, fmt.Errorf("invalid ogg stream: %w", err)
	}
	channels := int(header.Channels)
	if channels < 1 || channels > 2 {
		return wav.Buffer{}, fmt.Errorf("unsupported channel count %d", channels)
	}
	rate := int(header.SampleRate)
	if !SupportedRate(rate) {
		rate = 48000
	}

	dec, err := opus.NewDecoder(rate, channels)
	if err != nil {
		return wav.Buffer{}, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	out := wav.Buffer{SampleRate: rate, Channels: make([][]float32, channels)}
	pcm := make([]float32, maxFrameSamples*channels)
	for {
		payload, _, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return wav.Buffer{}, fmt.Errorf("failed to read ogg page: %w", err)
		}
		if len(payload) == 0 || bytes.HasPrefix(payload, opusTags) {
			continue
		}

		n, err := dec.DecodeFloat32(payload, pcm)
		if err != nil {
			return wav.Buffer{}, fmt.Errorf("opus decode: %w", err)
		}
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				out.Channels[c] = append(out.Channels[c], pcm[i*channels+c])
			}
		}
	}

	if skip := int(header.PreSkip) * rate / 48000; skip > 0 && skip <= out.Frames() {
		for c := range out.Channels {
			out.Channels[c] = out.Channels[c][skip:]
		}
	}
	if out.Frames() == 0 {
		return wav.Buffer{}, fmt.Errorf("recording contains no audio")
	}
	return out, nil
}
