package graph

import "time"

// Block is one render quantum of de-interleaved samples, one slice per channel.
type Block [][]float32

// Frames returns the number of samples per channel in the block.
func (b Block) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// FilterKind selects the response of a biquad filter node.
type FilterKind int

const (
	LowShelf FilterKind = iota
	HighShelf
	Peaking
)

func (k FilterKind) String() string {
	switch k {
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	case Peaking:
		return "peaking"
	default:
		return "unknown"
	}
}

// Param is an automatable node parameter on the engine's timeline.
type Param interface {
	// Value returns the parameter's value at the engine's current time.
	Value() float64
	// SetValueAt schedules a step to v at time at.
	SetValueAt(v float64, at time.Duration)
	// LinearRampTo schedules a linear ramp from the previous event to v ending at end.
	LinearRampTo(v float64, end time.Duration)
	// CancelFrom removes all events scheduled at or after at.
	CancelFrom(at time.Duration)
}

// Node is a vertex in the engine's processing graph.
type Node interface {
	NodeID() int
}

// Gain scales its summed inputs.
type Gain interface {
	Node
	Gain() Param
}

// Filter is a biquad filter node.
type Filter interface {
	Node
	Kind() FilterKind
	Frequency() Param
	Q() Param
	GainDB() Param
}

// Compressor is a feed-forward dynamics compressor node.
type Compressor interface {
	Node
	Threshold() Param
	Ratio() Param
	Knee() Param
	Attack() Param
	Release() Param
}

// Tap exposes the signal arriving at a node to subscribers.
type Tap interface {
	Node
	SampleRate() int
	Channels() int
	// Subscribe returns a channel of rendered blocks and a function that
	// stops delivery. The channel is closed after unsubscribe.
	Subscribe() (<-chan Block, func())
}

// Engine is the host audio engine. This is a port - implementations provide
// block-based rendering of a node graph driven by the media source.
type Engine interface {
	SampleRate() int
	Channels() int
	// Now returns the engine clock, which advances as blocks render.
	Now() time.Duration
	// Source is the node carrying the decoded media signal.
	Source() Node
	// Destination is the node feeding the output device.
	Destination() Tap

	NewGain(initial float64) (Gain, error)
	NewFilter(kind FilterKind) (Filter, error)
	NewCompressor() (Compressor, error)
	NewTap() (Tap, error)

	Connect(from, to Node) error
	Disconnect(from, to Node) error
	// RemoveNode drops a node created by the engine along with its routes.
	RemoveNode(n Node) error
	Close() error
}

// EngineFactory creates the host audio engine.
type EngineFactory interface {
	NewEngine() (Engine, error)
}
