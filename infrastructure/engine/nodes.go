package engine

import (
	"time"

	"vidflow/domain/graph"
)

type processor interface {
	process(in, out graph.Block, start time.Duration)
}

type node struct {
	id     int
	engine *Engine
	inputs []*node
	in     graph.Block
	out    graph.Block
	proc   processor
	params []*Param
}

// NodeID returns the node's identifier within its engine.
func (n *node) NodeID() int { return n.id }

func (n *node) base() *node { return n }

type baseNode interface {
	base() *node
}

// sourceNode emits the block handed to Render.
type sourceNode struct {
	*node
}

func (s *sourceNode) process(_, out graph.Block, _ time.Duration) {
	input := s.engine.input
	for c := range out {
		if c < len(input) && len(input[c]) == len(out[c]) {
			copy(out[c], input[c])
			continue
		}
		clear(out[c])
	}
}

// GainNode multiplies its input by an automatable gain.
type GainNode struct {
	*node
	gain   *Param
	values []float64
}

var _ graph.Gain = (*GainNode)(nil)

// Gain returns the gain parameter.
func (g *GainNode) Gain() graph.Param { return g.gain }

func (g *GainNode) process(in, out graph.Block, start time.Duration) {
	frames := in.Frames()
	if cap(g.values) < frames {
		g.values = make([]float64, frames)
	}
	values := g.values[:frames]
	g.gain.fill(values, start, g.engine.sampleRate)
	for c := range in {
		for i, v := range in[c] {
			out[c][i] = float32(float64(v) * values[i])
		}
	}
}

// FilterNode is a biquad filter with block-rate parameters.
type FilterNode struct {
	*node
	kind      graph.FilterKind
	frequency *Param
	q         *Param
	gainDB    *Param
	states    []biquadState
	coeffs    coefficients
	designed  [3]float64
	hasCoeffs bool
}

var _ graph.Filter = (*FilterNode)(nil)

func (f *FilterNode) Kind() graph.FilterKind { return f.kind }
func (f *FilterNode) Frequency() graph.Param { return f.frequency }
func (f *FilterNode) Q() graph.Param         { return f.q }
func (f *FilterNode) GainDB() graph.Param    { return f.gainDB }

func (f *FilterNode) process(in, out graph.Block, start time.Duration) {
	key := [3]float64{f.frequency.sample(start), f.q.sample(start), f.gainDB.sample(start)}
	if !f.hasCoeffs || key != f.designed {
		f.coeffs = designBiquad(f.kind, f.engine.sampleRate, key[0], key[1], key[2])
		f.designed = key
		f.hasCoeffs = true
	}
	for c := range in {
		f.states[c].process(f.coeffs, in[c], out[c])
	}
}

// CompressorNode reduces dynamic range above its threshold.
type CompressorNode struct {
	*node
	threshold *Param
	ratio     *Param
	knee      *Param
	attack    *Param
	release   *Param
	state     compressorState
}

var _ graph.Compressor = (*CompressorNode)(nil)

func (c *CompressorNode) Threshold() graph.Param { return c.threshold }
func (c *CompressorNode) Ratio() graph.Param     { return c.ratio }
func (c *CompressorNode) Knee() graph.Param      { return c.knee }
func (c *CompressorNode) Attack() graph.Param    { return c.attack }
func (c *CompressorNode) Release() graph.Param   { return c.release }

// GainReductionDB reports the current smoothed gain reduction.
func (c *CompressorNode) GainReductionDB() float64 {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	return c.state.envelopeDB
}

func (c *CompressorNode) process(in, out graph.Block, start time.Duration) {
	settings := compressorSettings{
		thresholdDB: c.threshold.sample(start),
		ratio:       c.ratio.sample(start),
		kneeDB:      c.knee.sample(start),
		attack:      c.attack.sample(start),
		release:     c.release.sample(start),
	}
	c.state.process(settings, c.engine.sampleRate, in, out)
}

// TapNode passes its input through and publishes each rendered block.
type TapNode struct {
	*node
	bc *broadcaster
}

var _ graph.Tap = (*TapNode)(nil)

func (t *TapNode) SampleRate() int { return t.engine.sampleRate }
func (t *TapNode) Channels() int   { return t.engine.channels }

// Subscribe returns rendered blocks until the returned func is called.
func (t *TapNode) Subscribe() (<-chan graph.Block, func()) {
	return t.bc.subscribe()
}

// Listeners returns the number of active subscribers.
func (t *TapNode) Listeners() int {
	return t.bc.listenerCount()
}

func (t *TapNode) process(in, out graph.Block, _ time.Duration) {
	for c := range in {
		copy(out[c], in[c])
	}
}
