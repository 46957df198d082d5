package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"vidflow/domain/graph"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultSampleRate matches the Opus capture and monitor rate.
	DefaultSampleRate = 48000
	// DefaultChannels is stereo.
	DefaultChannels = 2
)

var (
	// ErrClosed is returned when using an engine after Close.
	ErrClosed = errors.New("audio engine closed")
	// ErrForeignNode is returned when connecting nodes that belong to another engine.
	ErrForeignNode = errors.New("node belongs to a different engine")
	// ErrCycle is returned when a connection would create a feedback loop.
	ErrCycle = errors.New("connection would create a cycle")
	// ErrFixedNode is returned when removing the source or destination node.
	ErrFixedNode = errors.New("source and destination nodes cannot be removed")
)

// Engine renders a graph of audio nodes one block at a time. The clock
// advances by the number of frames rendered.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	rendered   atomic.Int64

	nodes  []*node
	nextID int
	order  []*node
	dirty  bool
	input  graph.Block
	closed bool

	source *sourceNode
	dest   *TapNode
	taps   []*TapNode
	log    *logrus.Entry
}

var _ graph.Engine = (*Engine)(nil)

// New creates an engine with a source and destination node.
func New(sampleRate, channels int) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	e := &Engine{
		sampleRate: sampleRate,
		channels:   channels,
		dirty:      true,
		log:        logrus.WithField("component", "engine"),
	}

	e.source = &sourceNode{}
	e.source.node = e.addNode(e.source)

	e.dest = &TapNode{bc: newBroadcaster()}
	e.dest.node = e.addNode(e.dest)
	e.taps = append(e.taps, e.dest)

	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) Channels() int   { return e.channels }

// Now returns the duration of audio rendered so far.
func (e *Engine) Now() time.Duration {
	return frameDuration(e.rendered.Load(), e.sampleRate)
}

func (e *Engine) Source() graph.Node      { return e.source }
func (e *Engine) Destination() graph.Tap  { return e.dest }
func (e *Engine) DestinationTap() *TapNode { return e.dest }

func (e *Engine) addNode(p processor) *node {
	n := &node{id: e.nextID, engine: e, proc: p}
	e.nextID++
	e.nodes = append(e.nodes, n)
	e.dirty = true
	return n
}

func (e *Engine) newParam(initial, min, max float64) *Param {
	return newParam(e.Now, initial, min, max)
}

// NewGain creates a gain node.
func (e *Engine) NewGain(initial float64) (graph.Gain, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	g := &GainNode{gain: e.newParam(initial, 0, 10)}
	g.node = e.addNode(g)
	g.params = []*Param{g.gain}
	return g, nil
}

// NewFilter creates a biquad filter node.
func (e *Engine) NewFilter(kind graph.FilterKind) (graph.Filter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	switch kind {
	case graph.LowShelf, graph.HighShelf, graph.Peaking:
	default:
		return nil, fmt.Errorf("unsupported filter kind %v", kind)
	}

	nyquist := float64(e.sampleRate) / 2
	f := &FilterNode{
		kind:      kind,
		frequency: e.newParam(350, 10, nyquist),
		q:         e.newParam(1, 0.0001, 1000),
		gainDB:    e.newParam(0, -40, 40),
		states:    make([]biquadState, e.channels),
	}
	f.node = e.addNode(f)
	f.params = []*Param{f.frequency, f.q, f.gainDB}
	return f, nil
}

// NewCompressor creates a compressor node that is transparent until configured.
func (e *Engine) NewCompressor() (graph.Compressor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	c := &CompressorNode{
		threshold: e.newParam(0, -100, 0),
		ratio:     e.newParam(1, 1, 20),
		knee:      e.newParam(6, 0, 40),
		attack:    e.newParam(0.003, 0, 1),
		release:   e.newParam(0.25, 0, 1),
	}
	c.node = e.addNode(c)
	c.params = []*Param{c.threshold, c.ratio, c.knee, c.attack, c.release}
	return c, nil
}

// NewTap creates a pass-through node whose output can be subscribed to.
func (e *Engine) NewTap() (graph.Tap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	t := &TapNode{bc: newBroadcaster()}
	t.node = e.addNode(t)
	e.taps = append(e.taps, t)
	return t, nil
}

// Connect routes the output of from into to.
func (e *Engine) Connect(from, to graph.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	src, dst, err := e.resolve(from, to)
	if err != nil {
		return err
	}
	if dst == e.source.node {
		return fmt.Errorf("source node has no inputs")
	}
	for _, in := range dst.inputs {
		if in == src {
			return nil
		}
	}
	if src == dst || dependsOn(src, dst) {
		return ErrCycle
	}
	dst.inputs = append(dst.inputs, src)
	e.dirty = true
	return nil
}

// Disconnect removes a route created by Connect.
func (e *Engine) Disconnect(from, to graph.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	src, dst, err := e.resolve(from, to)
	if err != nil {
		return err
	}
	for i, in := range dst.inputs {
		if in == src {
			dst.inputs = append(dst.inputs[:i], dst.inputs[i+1:]...)
			e.dirty = true
			return nil
		}
	}
	return nil
}

// RemoveNode drops a node and every route into or out of it. Subscribers of
// a removed tap see their channel closed.
func (e *Engine) RemoveNode(n graph.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := n.(baseNode)
	if !ok || b.base().engine != e {
		return ErrForeignNode
	}
	target := b.base()
	if target == e.source.node || target == e.dest.node {
		return ErrFixedNode
	}

	e.nodes = slices.DeleteFunc(e.nodes, func(x *node) bool { return x == target })
	for _, x := range e.nodes {
		x.inputs = slices.DeleteFunc(x.inputs, func(in *node) bool { return in == target })
	}
	if t, ok := n.(*TapNode); ok {
		e.taps = slices.DeleteFunc(e.taps, func(x *TapNode) bool { return x == t })
		t.bc.closeAll()
	}
	target.inputs = nil
	e.dirty = true
	return nil
}

// NodeCount returns the number of nodes in the graph, source and destination included.
func (e *Engine) NodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes)
}

func (e *Engine) resolve(from, to graph.Node) (*node, *node, error) {
	a, ok := from.(baseNode)
	if !ok || a.base().engine != e {
		return nil, nil, ErrForeignNode
	}
	b, ok := to.(baseNode)
	if !ok || b.base().engine != e {
		return nil, nil, ErrForeignNode
	}
	return a.base(), b.base(), nil
}

// dependsOn reports whether n already receives signal from target.
func dependsOn(n, target *node) bool {
	seen := make(map[*node]bool)
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, cur.inputs...)
	}
	return false
}

// Render processes one block of source audio through the graph.
func (e *Engine) Render(input graph.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	frames := input.Frames()
	if frames == 0 {
		return nil
	}
	if e.dirty {
		e.order = topologicalOrder(e.nodes)
		e.dirty = false
	}

	start := e.Now()
	e.input = input
	for _, n := range e.order {
		n.in = e.mixInputs(n, frames)
		n.out = sizeBlock(n.out, e.channels, frames)
		n.proc.process(n.in, n.out, start)
	}
	e.input = nil

	for _, t := range e.taps {
		t.bc.publish(t.out)
	}

	e.rendered.Add(int64(frames))
	end := e.Now()
	for _, n := range e.nodes {
		for _, p := range n.params {
			p.settle(end)
		}
	}
	return nil
}

func (e *Engine) mixInputs(n *node, frames int) graph.Block {
	in := sizeBlock(n.in, e.channels, frames)
	for c := range in {
		clear(in[c])
	}
	for _, src := range n.inputs {
		for c := range in {
			for i, v := range src.out[c] {
				in[c][i] += v
			}
		}
	}
	return in
}

// Close stops rendering and releases all subscribers.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	for _, t := range e.taps {
		t.bc.closeAll()
	}
	e.log.WithField("dropped_blocks", e.droppedBlocks()).Debug("engine closed")
	return nil
}

func (e *Engine) droppedBlocks() int64 {
	var total int64
	for _, t := range e.taps {
		total += t.bc.dropped.Load()
	}
	return total
}

func sizeBlock(b graph.Block, channels, frames int) graph.Block {
	if len(b) != channels {
		b = make(graph.Block, channels)
	}
	for c := range b {
		if cap(b[c]) < frames {
			b[c] = make([]float32, frames)
		}
		b[c] = b[c][:frames]
	}
	return b
}

// topologicalOrder sorts nodes so every node follows its inputs.
func topologicalOrder(nodes []*node) []*node {
	indegree := make(map[*node]int, len(nodes))
	outputs := make(map[*node][]*node, len(nodes))
	for _, n := range nodes {
		indegree[n] += 0
		for _, in := range n.inputs {
			indegree[n]++
			outputs[in] = append(outputs[in], n)
		}
	}

	queue := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*node, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, out := range outputs[n] {
			indegree[out]--
			if indegree[out] == 0 {
				queue = append(queue, out)
			}
		}
	}
	return order
}

// Peak returns the largest absolute sample in a block.
func Peak(b graph.Block) float64 {
	peak := 0.0
	for _, ch := range b {
		for _, v := range ch {
			peak = math.Max(peak, math.Abs(float64(v)))
		}
	}
	return peak
}
