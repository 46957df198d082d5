package engine

import (
	"vidflow/domain/graph"
)

// Renderer accepts source audio for rendering.
type Renderer interface {
	Render(input graph.Block) error
}

// Attacher is a media source that can drive an engine.
type Attacher interface {
	Attach(r Renderer)
}

// Factory creates engines and attaches them to the media source.
type Factory struct {
	SampleRate int
	Channels   int
	Source     Attacher

	// OnCreate is called with each new engine, before it is returned.
	OnCreate func(*Engine)
}

var _ graph.EngineFactory = (*Factory)(nil)

// NewEngine creates an engine and starts feeding it from the media source.
func (f *Factory) NewEngine() (graph.Engine, error) {
	rate, channels := f.SampleRate, f.Channels
	if rate == 0 {
		rate = DefaultSampleRate
	}
	if channels == 0 {
		channels = DefaultChannels
	}

	e, err := New(rate, channels)
	if err != nil {
		return nil, err
	}
	if f.OnCreate != nil {
		f.OnCreate(e)
	}
	if f.Source != nil {
		f.Source.Attach(e)
	}
	return e, nil
}
