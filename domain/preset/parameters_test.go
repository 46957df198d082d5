package preset

import (
	"math"
	"strings"
	"testing"
)

func TestComputeParameters_OffIsNeutral(t *testing.T) {
	for _, strength := range []float64{0, 1, 50, 99, 100, 250, -10} {
		got := ComputeParameters(Off, strength)
		if got != Neutral() {
			t.Errorf("ComputeParameters(Off, %v) = %+v, want neutral", strength, got)
		}
	}
}

func TestComputeParameters_Deterministic(t *testing.T) {
	for _, id := range All() {
		for s := 0.0; s <= 100; s += 12.5 {
			a := ComputeParameters(id, s)
			b := ComputeParameters(id, s)
			if a != b {
				t.Errorf("ComputeParameters(%v, %v) not deterministic: %+v vs %+v", id, s, a, b)
			}
		}
	}
}

func TestComputeParameters_ZeroStrengthHasNoGain(t *testing.T) {
	neutral := Neutral()
	for _, id := range All() {
		got := ComputeParameters(id, 0)
		if got.LowShelfGainDB != neutral.LowShelfGainDB {
			t.Errorf("%v: low shelf gain = %v, want %v", id, got.LowShelfGainDB, neutral.LowShelfGainDB)
		}
		if got.HighShelfGainDB != neutral.HighShelfGainDB {
			t.Errorf("%v: high shelf gain = %v, want %v", id, got.HighShelfGainDB, neutral.HighShelfGainDB)
		}
		if got.PeakGainDB != neutral.PeakGainDB {
			t.Errorf("%v: peak gain = %v, want %v", id, got.PeakGainDB, neutral.PeakGainDB)
		}
		if got.CompressorRatio != neutral.CompressorRatio {
			t.Errorf("%v: compressor ratio = %v, want %v", id, got.CompressorRatio, neutral.CompressorRatio)
		}
	}
}

func TestComputeParameters_Monotonic(t *testing.T) {
	for _, id := range []ID{SpeechFocus, MusicSoften} {
		prev := ComputeParameters(id, 0)
		for s := 1.0; s <= 100; s++ {
			cur := ComputeParameters(id, s)
			if math.Abs(cur.LowShelfGainDB) < math.Abs(prev.LowShelfGainDB) {
				t.Fatalf("%v: low shelf attenuation decreased at %v", id, s)
			}
			if math.Abs(cur.HighShelfGainDB) < math.Abs(prev.HighShelfGainDB) {
				t.Fatalf("%v: high shelf attenuation decreased at %v", id, s)
			}
			if cur.PeakGainDB < prev.PeakGainDB {
				t.Fatalf("%v: peak gain decreased at %v", id, s)
			}
			if cur.CompressorRatio < prev.CompressorRatio {
				t.Fatalf("%v: compressor ratio decreased at %v", id, s)
			}
			if cur.CompressorThresholdDB > prev.CompressorThresholdDB {
				t.Fatalf("%v: compressor threshold rose at %v", id, s)
			}
			prev = cur
		}
	}
}

func TestComputeParameters_ClampsStrength(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		same float64
	}{
		{"above max", 180, 100},
		{"below zero", -5, 0},
		{"nan", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, id := range All() {
				if ComputeParameters(id, tt.in) != ComputeParameters(id, tt.same) {
					t.Errorf("%v: strength %v not clamped to %v", id, tt.in, tt.same)
				}
			}
		})
	}
}

func TestComputeParameters_PresetShapes(t *testing.T) {
	speech := ComputeParameters(SpeechFocus, 100)
	if speech.PeakFrequencyHz < 2000 || speech.PeakFrequencyHz > 2500 {
		t.Errorf("speech peak frequency = %v, want within 2-2.5 kHz", speech.PeakFrequencyHz)
	}
	if speech.PeakGainDB <= 0 {
		t.Errorf("speech peak should boost, got %v", speech.PeakGainDB)
	}

	music := ComputeParameters(MusicSoften, 100)
	if music.LowShelfGainDB >= speech.LowShelfGainDB {
		t.Errorf("music should attenuate lows harder: music %v, speech %v", music.LowShelfGainDB, speech.LowShelfGainDB)
	}
	if music.CompressorRatio <= speech.CompressorRatio {
		t.Errorf("music should compress harder: music %v, speech %v", music.CompressorRatio, speech.CompressorRatio)
	}
	if ComputeParameters(MusicSoften, 10).CompressorThresholdDB != music.CompressorThresholdDB {
		t.Error("music threshold should not depend on strength")
	}
}

func TestFilterExpression(t *testing.T) {
	if expr := Neutral().FilterExpression(); expr != "" {
		t.Errorf("neutral expression = %q, want empty", expr)
	}
	if expr := ComputeParameters(SpeechFocus, 0).FilterExpression(); expr != "" {
		t.Errorf("zero strength expression = %q, want empty", expr)
	}

	expr := ComputeParameters(SpeechFocus, 100).FilterExpression()
	for _, want := range []string{"bass=g=-12:f=200", "treble=g=-8:f=4000", "equalizer=f=2500:t=q:w=1:g=6", "acompressor=", "ratio=4"} {
		if !strings.Contains(expr, want) {
			t.Errorf("expression %q missing %q", expr, want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"speech", SpeechFocus, false},
		{"Speech Focus", SpeechFocus, false},
		{"MUSIC", MusicSoften, false},
		{"music-soften", MusicSoften, false},
		{"off", Off, false},
		{"", Off, false},
		{"original", Off, false},
		{"karaoke", Off, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileKey(t *testing.T) {
	if Off.FileKey() != "original" {
		t.Errorf("Off.FileKey() = %q", Off.FileKey())
	}
	if SpeechFocus.FileKey() != "speech" {
		t.Errorf("SpeechFocus.FileKey() = %q", SpeechFocus.FileKey())
	}
}
