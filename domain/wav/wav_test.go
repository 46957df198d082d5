package wav

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncode_Length(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
		rate     int
	}{
		{"mono", 1, 100, 8000},
		{"stereo", 2, 4800, 48000},
		{"empty", 2, 0, 44100},
		{"six channel", 6, 10, 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Buffer{SampleRate: tt.rate, Channels: make([][]float32, tt.channels)}
			for c := range buf.Channels {
				buf.Channels[c] = make([]float32, tt.frames)
			}

			out, err := Encode(buf)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			want := 44 + tt.frames*tt.channels*2
			if len(out) != want {
				t.Errorf("len = %d, want %d", len(out), want)
			}
			if got := binary.LittleEndian.Uint16(out[22:]); int(got) != tt.channels {
				t.Errorf("channels at 22 = %d, want %d", got, tt.channels)
			}
			if got := binary.LittleEndian.Uint32(out[24:]); int(got) != tt.rate {
				t.Errorf("rate at 24 = %d, want %d", got, tt.rate)
			}
			if got := binary.LittleEndian.Uint16(out[34:]); got != 16 {
				t.Errorf("bit depth at 34 = %d, want 16", got)
			}
			if got := binary.LittleEndian.Uint32(out[40:]); int(got) != tt.frames*tt.channels*2 {
				t.Errorf("data length at 40 = %d", got)
			}
		})
	}
}

func TestEncode_Scaling(t *testing.T) {
	buf := Buffer{SampleRate: 48000, Channels: [][]float32{{1, -1, 0, 2, -3, 0.5}}}
	out, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := []int16{32767, -32768, 0, 32767, -32768, 16383}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(out[HeaderSize+i*2:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncode_Interleaves(t *testing.T) {
	buf := Buffer{SampleRate: 48000, Channels: [][]float32{{1, 1}, {-1, -1}}}
	out, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	order := []int16{32767, -32768, 32767, -32768}
	for i, w := range order {
		if got := int16(binary.LittleEndian.Uint16(out[HeaderSize+i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	const frames = 1000
	buf := Buffer{SampleRate: 44100, Channels: [][]float32{make([]float32, frames), make([]float32, frames)}}
	for i := 0; i < frames; i++ {
		buf.Channels[0][i] = float32(math.Sin(float64(i) / 10))
		buf.Channels[1][i] = float32(-0.5 * math.Cos(float64(i)/7))
	}

	out, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if back.SampleRate != buf.SampleRate || back.NumChannels() != 2 || back.Frames() != frames {
		t.Fatalf("decoded shape = %d Hz, %d ch, %d frames", back.SampleRate, back.NumChannels(), back.Frames())
	}
	const tolerance = 1.0 / 32767
	for c := range buf.Channels {
		for i := range buf.Channels[c] {
			if d := math.Abs(float64(back.Channels[c][i] - buf.Channels[c][i])); d > tolerance {
				t.Fatalf("channel %d frame %d differs by %v", c, i, d)
			}
		}
	}
}

func TestEncode_InvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
	}{
		{"no channels", Buffer{SampleRate: 48000}},
		{"ragged", Buffer{SampleRate: 48000, Channels: [][]float32{{0, 0}, {0}}}},
		{"zero rate", Buffer{Channels: [][]float32{{0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.buf); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Encode error = %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("OggS")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("short input error = %v", err)
	}
	junk := make([]byte, 64)
	copy(junk, "OggS")
	if _, err := Decode(junk); !errors.Is(err, ErrNotWAV) {
		t.Errorf("junk input error = %v", err)
	}
}

func TestBuffer_Fit(t *testing.T) {
	b := Buffer{SampleRate: 8000, Channels: [][]float32{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}}}

	short := b.Fit(2)
	if short.Frames() != 2 || short.Channels[1][1] != -0.2 {
		t.Errorf("Fit(2) = %v", short.Channels)
	}

	long := b.Fit(5)
	if long.Frames() != 5 || long.Channels[0][2] != 0.3 || long.Channels[0][4] != 0 {
		t.Errorf("Fit(5) = %v", long.Channels)
	}
	if b.Frames() != 3 {
		t.Errorf("Fit modified the receiver")
	}
}

func TestBuffer_FitEnd(t *testing.T) {
	b := Buffer{SampleRate: 8000, Channels: [][]float32{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}}}

	short := b.FitEnd(2)
	if short.Frames() != 2 || short.Channels[0][0] != 0.2 || short.Channels[1][1] != -0.3 {
		t.Errorf("FitEnd(2) = %v, want the last two frames", short.Channels)
	}

	long := b.FitEnd(4)
	if long.Frames() != 4 || long.Channels[0][0] != 0.1 || long.Channels[0][3] != 0 {
		t.Errorf("FitEnd(4) = %v, want padding at the end", long.Channels)
	}
	if b.Frames() != 3 {
		t.Errorf("FitEnd modified the receiver")
	}
}

func TestFramesFor(t *testing.T) {
	if got := FramesFor(60*time.Second, 48000); got != 2880000 {
		t.Errorf("FramesFor(60s) = %d, want 2880000", got)
	}
	if got := FramesFor(20*time.Millisecond, 48000); got != 960 {
		t.Errorf("FramesFor(20ms) = %d, want 960", got)
	}
}
