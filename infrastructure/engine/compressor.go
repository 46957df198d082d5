package engine

import "math"

// compressorState tracks the smoothed gain reduction of a feed-forward
// compressor with a stereo-linked peak detector.
type compressorState struct {
	envelopeDB float64
}

type compressorSettings struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attack      float64 // seconds
	release     float64 // seconds
}

// gainReduction returns the static curve's reduction in dB (<= 0) for an input level.
func (s compressorSettings) gainReduction(levelDB float64) float64 {
	if s.ratio <= 1 {
		return 0
	}
	over := levelDB - s.thresholdDB
	var outDB float64
	switch {
	case 2*over < -s.kneeDB:
		outDB = levelDB
	case s.kneeDB > 0 && 2*math.Abs(over) <= s.kneeDB:
		x := over + s.kneeDB/2
		outDB = levelDB + (1/s.ratio-1)*x*x/(2*s.kneeDB)
	default:
		outDB = s.thresholdDB + over/s.ratio
	}
	return outDB - levelDB
}

func (st *compressorState) process(s compressorSettings, sampleRate int, in [][]float32, out [][]float32) {
	if len(in) == 0 {
		return
	}
	attackCoef := smoothingCoefficient(s.attack, sampleRate)
	releaseCoef := smoothingCoefficient(s.release, sampleRate)

	frames := len(in[0])
	for i := 0; i < frames; i++ {
		peak := 0.0
		for c := range in {
			if v := math.Abs(float64(in[c][i])); v > peak {
				peak = v
			}
		}
		levelDB := 20 * math.Log10(math.Max(peak, 1e-9))
		target := s.gainReduction(levelDB)

		if target < st.envelopeDB {
			st.envelopeDB = attackCoef*st.envelopeDB + (1-attackCoef)*target
		} else {
			st.envelopeDB = releaseCoef*st.envelopeDB + (1-releaseCoef)*target
		}

		gain := math.Pow(10, st.envelopeDB/20)
		for c := range in {
			out[c][i] = float32(float64(in[c][i]) * gain)
		}
	}
}

func smoothingCoefficient(seconds float64, sampleRate int) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * float64(sampleRate)))
}
