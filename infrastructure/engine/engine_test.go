package engine

import (
	"math"
	"testing"
	"time"

	"vidflow/domain/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantBlock(channels, frames int, v float32) graph.Block {
	b := make(graph.Block, channels)
	for c := range b {
		b[c] = make([]float32, frames)
		for i := range b[c] {
			b[c][i] = v
		}
	}
	return b
}

func sineBlock(channels, frames, sampleRate int, freq float64, offset int) graph.Block {
	b := make(graph.Block, channels)
	for c := range b {
		b[c] = make([]float32, frames)
		for i := range b[c] {
			b[c][i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(offset+i)/float64(sampleRate)))
		}
	}
	return b
}

func TestEngine_GainChain(t *testing.T) {
	e, err := New(48000, 2)
	require.NoError(t, err)

	g, err := e.NewGain(0.5)
	require.NoError(t, err)
	require.NoError(t, e.Connect(e.Source(), g))
	require.NoError(t, e.Connect(g, e.Destination()))

	out, stop := e.Destination().Subscribe()
	defer stop()

	require.NoError(t, e.Render(constantBlock(2, 480, 0.8)))

	block := <-out
	assert.Equal(t, 480, block.Frames())
	assert.InDelta(t, 0.4, block[0][0], 1e-6)
	assert.InDelta(t, 0.4, block[1][479], 1e-6)
	assert.Equal(t, 10*time.Millisecond, e.Now())
}

func TestEngine_SumsParallelPaths(t *testing.T) {
	e, err := New(48000, 1)
	require.NoError(t, err)

	a, _ := e.NewGain(0.25)
	b, _ := e.NewGain(0.5)
	for _, n := range []graph.Node{a, b} {
		require.NoError(t, e.Connect(e.Source(), n))
		require.NoError(t, e.Connect(n, e.Destination()))
	}

	out, stop := e.Destination().Subscribe()
	defer stop()
	require.NoError(t, e.Render(constantBlock(1, 64, 1)))

	block := <-out
	assert.InDelta(t, 0.75, block[0][10], 1e-6)
}

func TestEngine_RejectsCycles(t *testing.T) {
	e, err := New(48000, 2)
	require.NoError(t, err)

	a, _ := e.NewGain(1)
	b, _ := e.NewGain(1)
	require.NoError(t, e.Connect(a, b))
	assert.ErrorIs(t, e.Connect(b, a), ErrCycle)
	assert.ErrorIs(t, e.Connect(a, a), ErrCycle)
	assert.Error(t, e.Connect(a, e.Source()))
}

func TestEngine_ForeignNode(t *testing.T) {
	e1, _ := New(48000, 2)
	e2, _ := New(48000, 2)
	g, _ := e2.NewGain(1)
	assert.ErrorIs(t, e1.Connect(e1.Source(), g), ErrForeignNode)
}

func TestEngine_ClosedRejectsWork(t *testing.T) {
	e, _ := New(48000, 2)
	out, _ := e.Destination().Subscribe()
	require.NoError(t, e.Close())

	_, open := <-out
	assert.False(t, open, "subscriber channel should close with the engine")
	assert.ErrorIs(t, e.Render(constantBlock(2, 10, 0)), ErrClosed)
	_, err := e.NewGain(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngine_RemoveNode(t *testing.T) {
	e, err := New(48000, 1)
	require.NoError(t, err)

	g, _ := e.NewGain(0.5)
	tap, _ := e.NewTap()
	require.NoError(t, e.Connect(e.Source(), g))
	require.NoError(t, e.Connect(g, tap))
	require.NoError(t, e.Connect(g, e.Destination()))
	require.Equal(t, 4, e.NodeCount())

	blocks, stop := tap.Subscribe()
	defer stop()

	require.NoError(t, e.RemoveNode(tap))
	_, open := <-blocks
	assert.False(t, open, "removing a tap should close its subscribers")
	assert.Equal(t, 3, e.NodeCount())
	assert.Len(t, e.taps, 1)

	require.NoError(t, e.RemoveNode(g))
	assert.Equal(t, 2, e.NodeCount())

	out, stopDest := e.Destination().Subscribe()
	defer stopDest()
	require.NoError(t, e.Render(constantBlock(1, 32, 1)))
	block := <-out
	assert.Zero(t, block[0][0], "destination should lose the removed route")

	next, _ := e.NewGain(1)
	assert.NotEqual(t, g.NodeID(), next.NodeID())
}

func TestEngine_RemoveNodeRejectsFixedAndForeign(t *testing.T) {
	e1, _ := New(48000, 2)
	e2, _ := New(48000, 2)
	g, _ := e2.NewGain(1)

	assert.ErrorIs(t, e1.RemoveNode(e1.Source()), ErrFixedNode)
	assert.ErrorIs(t, e1.RemoveNode(e1.Destination()), ErrFixedNode)
	assert.ErrorIs(t, e1.RemoveNode(g), ErrForeignNode)
}

func TestEngine_Disconnect(t *testing.T) {
	e, _ := New(48000, 1)
	g, _ := e.NewGain(1)
	require.NoError(t, e.Connect(e.Source(), g))
	require.NoError(t, e.Connect(g, e.Destination()))
	require.NoError(t, e.Disconnect(g, e.Destination()))
	require.NoError(t, e.Disconnect(g, e.Destination()))

	out, stop := e.Destination().Subscribe()
	defer stop()
	require.NoError(t, e.Render(constantBlock(1, 16, 1)))
	block := <-out
	assert.Zero(t, block[0][5])
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(0, 2)
	assert.Error(t, err)
	_, err = New(48000, 0)
	assert.Error(t, err)
}

func TestParam_LinearRamp(t *testing.T) {
	e, _ := New(1000, 1)
	g, _ := e.NewGain(0)
	require.NoError(t, e.Connect(e.Source(), g))
	require.NoError(t, e.Connect(g, e.Destination()))

	p := g.Gain()
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, 100*time.Millisecond)

	out, stop := e.Destination().Subscribe()
	defer stop()
	require.NoError(t, e.Render(constantBlock(1, 100, 1)))
	block := <-out

	assert.InDelta(t, 0.0, block[0][0], 1e-6)
	assert.InDelta(t, 0.5, block[0][50], 1e-6)
	assert.InDelta(t, 0.99, block[0][99], 1e-6)
	assert.InDelta(t, 1.0, p.Value(), 1e-9)
	assert.False(t, p.(*Param).Pending())
}

func TestParam_CancelAndReanchor(t *testing.T) {
	e, _ := New(1000, 1)
	g, _ := e.NewGain(1)
	p := g.Gain()

	p.SetValueAt(1, 0)
	p.LinearRampTo(0, 100*time.Millisecond)
	require.NoError(t, e.Render(constantBlock(1, 40, 0)))

	now := e.Now()
	current := p.Value()
	assert.InDelta(t, 0.6, current, 1e-9)

	p.CancelFrom(now)
	p.SetValueAt(current, now)
	p.LinearRampTo(1, now+100*time.Millisecond)
	assert.InDelta(t, 0.6, p.Value(), 1e-9)

	require.NoError(t, e.Render(constantBlock(1, 50, 0)))
	assert.InDelta(t, 0.8, p.Value(), 1e-9)
}

func TestDesignBiquad_ZeroGainIsTransparent(t *testing.T) {
	for _, kind := range []graph.FilterKind{graph.LowShelf, graph.HighShelf, graph.Peaking} {
		c := designBiquad(kind, 48000, 1000, 1, 0)
		for _, f := range []float64{50, 1000, 10000} {
			assert.InDelta(t, 1.0, c.magnitudeAt(f, 48000), 1e-6, "%v at %v Hz", kind, f)
		}
	}
}

func TestDesignBiquad_Responses(t *testing.T) {
	const rate = 48000
	toDB := func(v float64) float64 { return 20 * math.Log10(v) }

	low := designBiquad(graph.LowShelf, rate, 200, 1, -12)
	assert.InDelta(t, -12, toDB(low.magnitudeAt(20, rate)), 0.5)
	assert.InDelta(t, 0, toDB(low.magnitudeAt(10000, rate)), 0.5)

	high := designBiquad(graph.HighShelf, rate, 4000, 1, -8)
	assert.InDelta(t, -8, toDB(high.magnitudeAt(20000, rate)), 0.75)
	assert.InDelta(t, 0, toDB(high.magnitudeAt(100, rate)), 0.5)

	peak := designBiquad(graph.Peaking, rate, 2500, 1, 6)
	assert.InDelta(t, 6, toDB(peak.magnitudeAt(2500, rate)), 0.01)
}

func TestDesignBiquad_OutOfRangeIsIdentity(t *testing.T) {
	assert.Equal(t, identity, designBiquad(graph.Peaking, 48000, 30000, 1, 6))
	assert.Equal(t, identity, designBiquad(graph.Peaking, 48000, 1000, 0, 6))
}

func TestFilterNode_AttenuatesLows(t *testing.T) {
	e, _ := New(48000, 1)
	f, err := e.NewFilter(graph.LowShelf)
	require.NoError(t, err)
	f.Frequency().SetValueAt(200, 0)
	f.GainDB().SetValueAt(-18, 0)
	require.NoError(t, e.Connect(e.Source(), f))
	require.NoError(t, e.Connect(f, e.Destination()))

	out, stop := e.Destination().Subscribe()
	defer stop()

	var last graph.Block
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Render(sineBlock(1, 960, 48000, 50, i*960)))
		last = <-out
	}
	// -18 dB is a factor of about 0.126 on the 0.5 amplitude input.
	assert.Less(t, Peak(last), 0.1)
}

func TestCompressor_ReducesLoudSignal(t *testing.T) {
	settings := compressorSettings{thresholdDB: -30, ratio: 4, kneeDB: 0, attack: 0.001, release: 0.1}
	assert.InDelta(t, 0.0, settings.gainReduction(-40), 1e-9)
	assert.InDelta(t, -22.5, settings.gainReduction(0), 1e-9)

	transparent := compressorSettings{thresholdDB: -30, ratio: 1, kneeDB: 6}
	assert.Equal(t, 0.0, transparent.gainReduction(0))

	var st compressorState
	in := [][]float32{make([]float32, 4800)}
	for i := range in[0] {
		in[0][i] = 0.9
	}
	out := [][]float32{make([]float32, 4800)}
	st.process(settings, 48000, in, out)
	assert.Less(t, float64(out[0][4799]), 0.2)
}

func TestFactory_AttachesSource(t *testing.T) {
	src := &recordingAttacher{}
	f := &Factory{Source: src}

	eng, err := f.NewEngine()
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, eng.SampleRate())
	assert.Equal(t, DefaultChannels, eng.Channels())
	assert.Same(t, eng.(*Engine), src.attached.(*Engine))
}

type recordingAttacher struct {
	attached Renderer
}

func (r *recordingAttacher) Attach(rd Renderer) {
	r.attached = rd
}
