package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vidflow/domain/export"
	"vidflow/domain/failure"
	"vidflow/domain/graph"
	"vidflow/domain/preset"

	"github.com/sirupsen/logrus"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Toast(message string, severity export.Severity)
}

// chain holds the nodes built by EnsureReady.
type chain struct {
	bypass     graph.Gain
	processed  graph.Gain
	output     graph.Gain
	lowShelf   graph.Filter
	highShelf  graph.Filter
	peak       graph.Filter
	compressor graph.Compressor
}

// Manager owns the dual-path processing graph. It is the only writer of node
// parameters and of the active path.
type Manager struct {
	mu        sync.Mutex
	factory   graph.EngineFactory
	notifier  Notifier
	crossfade time.Duration
	log       *logrus.Entry

	engine   graph.Engine
	nodes    *chain
	preset   preset.ID
	strength float64
	params   preset.FilterParameterSet
	active   graph.Path
	fadeEnd  time.Duration
}

// Option is a functional option for configuring Manager
type Option func(*Manager)

// WithCrossfade sets the path crossfade window
func WithCrossfade(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.crossfade = d
		}
	}
}

// WithStrength sets the initial strength percentage
func WithStrength(percent float64) Option {
	return func(m *Manager) {
		m.strength = preset.ClampStrength(percent)
	}
}

// NewManager creates a manager whose graph is built on the first EnsureReady
func NewManager(factory graph.EngineFactory, notifier Notifier, opts ...Option) *Manager {
	m := &Manager{
		factory:   factory,
		notifier:  notifier,
		crossfade: graph.DefaultCrossfade,
		strength:  preset.MaxStrength,
		active:    graph.Bypass,
		log:       logrus.WithField("component", "graph"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.params = preset.ComputeParameters(m.preset, m.strength)
	return m
}

// EnsureReady builds the graph on first use. Later calls return immediately.
// Construction is all-or-nothing: on failure no partial graph is kept.
func (m *Manager) EnsureReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine != nil {
		return nil
	}

	eng, err := m.factory.NewEngine()
	if err != nil {
		return m.unavailable(err)
	}
	nodes, err := buildChain(eng)
	if err != nil {
		eng.Close()
		return m.unavailable(err)
	}

	m.engine = eng
	m.nodes = nodes
	m.active = graph.Bypass
	m.applyParams()

	m.log.WithFields(logrus.Fields{
		"function":    "EnsureReady",
		"sample_rate": eng.SampleRate(),
		"channels":    eng.Channels(),
		"preset":      m.preset.Key(),
	}).Info("signal graph ready")

	if m.preset.Active() {
		m.crossfadeTo(graph.Processed)
	}
	return nil
}

func (m *Manager) unavailable(cause error) error {
	m.log.WithError(cause).Error("audio engine unavailable")
	if m.notifier != nil {
		m.notifier.Toast(failure.Message(failure.ErrEngineUnavailable), export.Error)
	}
	return fmt.Errorf("%w: %v", failure.ErrEngineUnavailable, cause)
}

func buildChain(eng graph.Engine) (*chain, error) {
	var (
		c   chain
		err error
	)
	if c.bypass, err = eng.NewGain(1); err != nil {
		return nil, err
	}
	if c.processed, err = eng.NewGain(0); err != nil {
		return nil, err
	}
	if c.output, err = eng.NewGain(1); err != nil {
		return nil, err
	}
	if c.lowShelf, err = eng.NewFilter(graph.LowShelf); err != nil {
		return nil, err
	}
	if c.highShelf, err = eng.NewFilter(graph.HighShelf); err != nil {
		return nil, err
	}
	if c.peak, err = eng.NewFilter(graph.Peaking); err != nil {
		return nil, err
	}
	if c.compressor, err = eng.NewCompressor(); err != nil {
		return nil, err
	}

	routes := [][2]graph.Node{
		{eng.Source(), c.bypass},
		{c.bypass, c.output},
		{eng.Source(), c.lowShelf},
		{c.lowShelf, c.highShelf},
		{c.highShelf, c.peak},
		{c.peak, c.compressor},
		{c.compressor, c.processed},
		{c.processed, c.output},
		{c.output, eng.Destination()},
	}
	for _, r := range routes {
		if err := eng.Connect(r[0], r[1]); err != nil {
			return nil, fmt.Errorf("connect %d -> %d: %w", r[0].NodeID(), r[1].NodeID(), err)
		}
	}
	return &c, nil
}

// SetPreset selects a preset and crossfades to the path it implies.
func (m *Manager) SetPreset(id preset.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.preset = id
	m.params = preset.ComputeParameters(id, m.strength)
	if m.engine == nil {
		m.log.WithField("preset", id.Key()).Debug("graph not ready; preset stored")
		return
	}

	m.applyParams()
	switch {
	case id.Active() && m.active == graph.Bypass:
		m.crossfadeTo(graph.Processed)
	case !id.Active() && m.active == graph.Processed:
		m.crossfadeTo(graph.Bypass)
	}
}

// SetStrength updates the strength percentage, clamped to [0, 100].
func (m *Manager) SetStrength(percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strength = preset.ClampStrength(percent)
	m.params = preset.ComputeParameters(m.preset, m.strength)
	if m.engine == nil {
		m.log.WithField("strength", m.strength).Debug("graph not ready; strength stored")
		return
	}
	m.applyParams()
}

// SetActivePath crossfades to target. A crossfade already in flight is
// re-anchored at the current gains.
func (m *Manager) SetActivePath(target graph.Path) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		m.log.WithField("path", target.String()).Warn("graph not ready; ignoring path change")
		return
	}
	if target == m.active && m.engine.Now() >= m.fadeEnd {
		return
	}
	m.crossfadeTo(target)
}

// crossfadeTo must be called with m.mu held on a ready graph.
func (m *Manager) crossfadeTo(target graph.Path) {
	now := m.engine.Now()
	end := now + m.crossfade

	bypassTarget, processedTarget := 1.0, 0.0
	if target == graph.Processed {
		bypassTarget, processedTarget = 0.0, 1.0
	}

	ramp := func(p graph.Param, to float64) {
		from := p.Value()
		p.CancelFrom(now)
		p.SetValueAt(from, now)
		p.LinearRampTo(to, end)
	}
	ramp(m.nodes.bypass.Gain(), bypassTarget)
	ramp(m.nodes.processed.Gain(), processedTarget)

	m.log.WithFields(logrus.Fields{
		"from":   m.active.String(),
		"to":     target.String(),
		"window": m.crossfade.String(),
	}).Debug("crossfading")

	m.active = target
	m.fadeEnd = end
}

// applyParams must be called with m.mu held on a ready graph.
func (m *Manager) applyParams() {
	now := m.engine.Now()
	set := func(p graph.Param, v float64) {
		p.CancelFrom(now)
		p.SetValueAt(v, now)
	}

	n, p := m.nodes, m.params
	set(n.lowShelf.Frequency(), preset.LowShelfFrequencyHz)
	set(n.lowShelf.GainDB(), p.LowShelfGainDB)
	set(n.highShelf.Frequency(), preset.HighShelfFrequencyHz)
	set(n.highShelf.GainDB(), p.HighShelfGainDB)
	set(n.peak.Frequency(), p.PeakFrequencyHz)
	set(n.peak.Q(), p.PeakQ)
	set(n.peak.GainDB(), p.PeakGainDB)
	set(n.compressor.Threshold(), p.CompressorThresholdDB)
	set(n.compressor.Ratio(), p.CompressorRatio)
}

// CaptureProcessedOutput returns a live tap of the processed chain when a
// preset is active, otherwise of the raw source. The caller must call release.
func (m *Manager) CaptureProcessedOutput() (graph.Tap, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil, nil, fmt.Errorf("%w: graph not ready", failure.ErrEngineUnavailable)
	}

	tap, err := m.engine.NewTap()
	if err != nil {
		return nil, nil, fmt.Errorf("create tap: %w", err)
	}
	var from graph.Node = m.engine.Source()
	if m.preset.Active() {
		from = m.nodes.compressor
	}
	if err := m.engine.Connect(from, tap); err != nil {
		if rmErr := m.engine.RemoveNode(tap); rmErr != nil {
			m.log.WithError(rmErr).Warn("failed to remove capture tap")
		}
		return nil, nil, fmt.Errorf("connect tap: %w", err)
	}

	eng := m.engine
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := eng.RemoveNode(tap); err != nil {
				m.log.WithError(err).Warn("failed to release capture tap")
			}
		})
	}
	return tap, release, nil
}

// State returns a snapshot of the graph state.
func (m *Manager) State() graph.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return graph.State{Topology: graph.Uninitialized, ActivePath: m.active}
	}
	return graph.State{
		Topology:          graph.Ready,
		ActivePath:        m.active,
		CrossfadeInFlight: m.engine.Now() < m.fadeEnd,
	}
}

// Preset returns the selected preset.
func (m *Manager) Preset() preset.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preset
}

// Strength returns the strength percentage.
func (m *Manager) Strength() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strength
}

// Parameters returns the parameter set currently applied.
func (m *Manager) Parameters() preset.FilterParameterSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Output returns the engine destination once the graph is ready.
func (m *Manager) Output() (graph.Tap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return nil, false
	}
	return m.engine.Destination(), true
}

// Close releases the engine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return nil
	}
	return m.engine.Close()
}
