package preset

import (
	"fmt"
	"math"
	"strings"
)

// Shelf corner frequencies shared by every preset.
const (
	LowShelfFrequencyHz  = 200.0
	HighShelfFrequencyHz = 4000.0
)

// MaxStrength is the upper bound of the strength slider.
const MaxStrength = 100

// FilterParameterSet is the complete set of values applied to the processed
// filter chain.
type FilterParameterSet struct {
	LowShelfGainDB        float64 `json:"low_shelf_gain_db"`
	HighShelfGainDB       float64 `json:"high_shelf_gain_db"`
	PeakFrequencyHz       float64 `json:"peak_frequency_hz"`
	PeakGainDB            float64 `json:"peak_gain_db"`
	PeakQ                 float64 `json:"peak_q"`
	CompressorThresholdDB float64 `json:"compressor_threshold_db"`
	CompressorRatio       float64 `json:"compressor_ratio"`
}

// Neutral returns the parameter set that leaves the signal unchanged.
func Neutral() FilterParameterSet {
	return FilterParameterSet{
		LowShelfGainDB:        0,
		HighShelfGainDB:       0,
		PeakFrequencyHz:       1000,
		PeakGainDB:            0,
		PeakQ:                 1,
		CompressorThresholdDB: 0,
		CompressorRatio:       1,
	}
}

// ClampStrength bounds a strength percentage to [0, MaxStrength].
func ClampStrength(percent float64) float64 {
	if math.IsNaN(percent) || percent < 0 {
		return 0
	}
	if percent > MaxStrength {
		return MaxStrength
	}
	return percent
}

// ComputeParameters maps a preset and strength percentage to filter values.
// The result depends only on its inputs. Every gain term grows in magnitude
// as strength increases, and a strength of zero yields zero gain on every band.
func ComputeParameters(id ID, strengthPercent float64) FilterParameterSet {
	s := ClampStrength(strengthPercent) / MaxStrength

	switch id {
	case Off:
		return Neutral()
	case SpeechFocus:
		return FilterParameterSet{
			LowShelfGainDB:        -12 * s,
			HighShelfGainDB:       -8 * s,
			PeakFrequencyHz:       2000 + 500*s,
			PeakGainDB:            6 * s,
			PeakQ:                 1.0,
			CompressorThresholdDB: -18 - 12*s,
			CompressorRatio:       1 + 3*s,
		}
	case MusicSoften:
		return FilterParameterSet{
			LowShelfGainDB:        -18 * s,
			HighShelfGainDB:       -12 * s,
			PeakFrequencyHz:       1500,
			PeakGainDB:            3 * s,
			PeakQ:                 0.8,
			CompressorThresholdDB: -30,
			CompressorRatio:       1 + 5*s,
		}
	default:
		return Neutral()
	}
}

// IsNeutral reports whether applying the set has no audible effect.
func (p FilterParameterSet) IsNeutral() bool {
	return p.LowShelfGainDB == 0 && p.HighShelfGainDB == 0 && p.PeakGainDB == 0 && p.CompressorRatio <= 1
}

// FilterExpression renders the set as an FFmpeg audio filter chain that
// approximates the live chain. Neutral sets produce an empty expression.
func (p FilterParameterSet) FilterExpression() string {
	if p.IsNeutral() {
		return ""
	}

	var filters []string
	if p.LowShelfGainDB != 0 {
		filters = append(filters, fmt.Sprintf("bass=g=%s:f=%s", formatNumber(p.LowShelfGainDB), formatNumber(LowShelfFrequencyHz)))
	}
	if p.HighShelfGainDB != 0 {
		filters = append(filters, fmt.Sprintf("treble=g=%s:f=%s", formatNumber(p.HighShelfGainDB), formatNumber(HighShelfFrequencyHz)))
	}
	if p.PeakGainDB != 0 {
		filters = append(filters, fmt.Sprintf("equalizer=f=%s:t=q:w=%s:g=%s",
			formatNumber(p.PeakFrequencyHz), formatNumber(p.PeakQ), formatNumber(p.PeakGainDB)))
	}
	if p.CompressorRatio > 1 {
		// acompressor takes a linear threshold in (0.000976563, 1].
		threshold := math.Max(math.Pow(10, p.CompressorThresholdDB/20), 0.000976563)
		filters = append(filters, fmt.Sprintf("acompressor=threshold=%s:ratio=%s:attack=3:release=250",
			formatNumber(threshold), formatNumber(p.CompressorRatio)))
	}
	return strings.Join(filters, ",")
}

func formatNumber(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
