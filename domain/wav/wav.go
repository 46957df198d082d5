package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// HeaderSize is the size of the canonical RIFF/WAVE PCM header.
	HeaderSize = 44
	// BitDepth is the only sample width produced by Encode.
	BitDepth = 16

	bytesPerSample = BitDepth / 8
)

// ErrInvalidBuffer is returned when a buffer has no channels or ragged channels.
var ErrInvalidBuffer = errors.New("invalid PCM buffer")

// ErrNotWAV is returned when decoding data that is not a canonical PCM WAV file.
var ErrNotWAV = errors.New("not a PCM WAV file")

// Buffer holds de-interleaved float PCM, one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NumChannels returns the channel count.
func (b Buffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of samples per channel.
func (b Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Fit returns a copy of b truncated or padded with silence to frames samples
// per channel.
func (b Buffer) Fit(frames int) Buffer {
	if frames < 0 {
		frames = 0
	}
	out := Buffer{SampleRate: b.SampleRate, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		fitted := make([]float32, frames)
		copy(fitted, ch)
		out.Channels[c] = fitted
	}
	return out
}

// FitEnd is Fit anchored at the end: extra frames are dropped from the
// start, missing frames are padded with silence at the end.
func (b Buffer) FitEnd(frames int) Buffer {
	if frames < 0 {
		frames = 0
	}
	skip := b.Frames() - frames
	if skip <= 0 {
		return b.Fit(frames)
	}
	out := Buffer{SampleRate: b.SampleRate, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		fitted := make([]float32, frames)
		if skip < len(ch) {
			copy(fitted, ch[skip:])
		}
		out.Channels[c] = fitted
	}
	return out
}

// FramesFor returns the number of frames covering d at sampleRate.
func FramesFor(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// Validate checks that the buffer can be encoded.
func (b Buffer) Validate() error {
	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidBuffer)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	frames := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidBuffer, i, len(ch), frames)
		}
	}
	return nil
}

// Descriptor describes the format written into a WAV header.
type Descriptor struct {
	NumChannels int
	SampleRate  int
	BitDepth    int
	DataLength  int
}

// DescriptorOf derives the header values for a buffer.
func DescriptorOf(b Buffer) Descriptor {
	return Descriptor{
		NumChannels: b.NumChannels(),
		SampleRate:  b.SampleRate,
		BitDepth:    BitDepth,
		DataLength:  b.Frames() * b.NumChannels() * bytesPerSample,
	}
}

// Encode produces a 16-bit little-endian PCM WAV file with interleaved samples.
// Samples are clamped to [-1, 1]; positive values scale by 32767 and negative
// values by 32768.
func Encode(b Buffer) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	d := DescriptorOf(b)
	out := make([]byte, HeaderSize+d.DataLength)
	writeHeader(out, d)

	offset := HeaderSize
	frames := b.Frames()
	for i := 0; i < frames; i++ {
		for _, ch := range b.Channels {
			binary.LittleEndian.PutUint16(out[offset:], uint16(quantize(ch[i])))
			offset += bytesPerSample
		}
	}
	return out, nil
}

func writeHeader(out []byte, d Descriptor) {
	blockAlign := d.NumChannels * bytesPerSample
	byteRate := d.SampleRate * blockAlign

	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+d.DataLength))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(d.NumChannels))
	binary.LittleEndian.PutUint32(out[24:], uint32(d.SampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(d.BitDepth))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(d.DataLength))
}

func quantize(v float32) int16 {
	s := float64(v)
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// ReadDescriptor parses the header of a canonical PCM WAV file.
func ReadDescriptor(data []byte) (Descriptor, error) {
	if len(data) < HeaderSize {
		return Descriptor{}, fmt.Errorf("%w: %d bytes", ErrNotWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return Descriptor{}, fmt.Errorf("%w: missing RIFF/WAVE markers", ErrNotWAV)
	}
	if format := binary.LittleEndian.Uint16(data[20:]); format != 1 {
		return Descriptor{}, fmt.Errorf("%w: audio format %d", ErrNotWAV, format)
	}
	return Descriptor{
		NumChannels: int(binary.LittleEndian.Uint16(data[22:])),
		SampleRate:  int(binary.LittleEndian.Uint32(data[24:])),
		BitDepth:    int(binary.LittleEndian.Uint16(data[34:])),
		DataLength:  int(binary.LittleEndian.Uint32(data[40:])),
	}, nil
}

// Decode reads a canonical 16-bit PCM WAV file into a float buffer.
func Decode(data []byte) (Buffer, error) {
	d, err := ReadDescriptor(data)
	if err != nil {
		return Buffer{}, err
	}
	if d.BitDepth != BitDepth || d.NumChannels <= 0 {
		return Buffer{}, fmt.Errorf("%w: %d channels at %d bits", ErrNotWAV, d.NumChannels, d.BitDepth)
	}
	if HeaderSize+d.DataLength > len(data) {
		return Buffer{}, fmt.Errorf("%w: data length %d exceeds file", ErrNotWAV, d.DataLength)
	}

	frames := d.DataLength / (d.NumChannels * bytesPerSample)
	buf := Buffer{SampleRate: d.SampleRate, Channels: make([][]float32, d.NumChannels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}

	offset := HeaderSize
	for i := 0; i < frames; i++ {
		for c := 0; c < d.NumChannels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[offset:]))
			if s < 0 {
				buf.Channels[c][i] = float32(s) / 32768
			} else {
				buf.Channels[c][i] = float32(s) / 32767
			}
			offset += bytesPerSample
		}
	}
	return buf, nil
}
