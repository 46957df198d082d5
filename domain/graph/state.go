package graph

import "time"

// Topology records whether the processing graph has been built.
type Topology int

const (
	Uninitialized Topology = iota
	Ready
)

func (t Topology) String() string {
	if t == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Path selects which signal path reaches the output.
type Path int

const (
	Bypass Path = iota
	Processed
)

func (p Path) String() string {
	if p == Processed {
		return "processed"
	}
	return "bypass"
}

// DefaultCrossfade is the window over which path gains ramp.
const DefaultCrossfade = 30 * time.Millisecond

// State is a snapshot of the graph manager's state.
type State struct {
	Topology          Topology
	ActivePath        Path
	CrossfadeInFlight bool
}
