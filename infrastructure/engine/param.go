package engine

import (
	"sort"
	"sync"
	"time"

	"vidflow/domain/graph"
)

type eventKind int

const (
	setEvent eventKind = iota
	rampEvent
)

type automationEvent struct {
	kind  eventKind
	value float64
	at    time.Duration
}

// Param is a parameter whose value follows a timeline of scheduled steps and
// linear ramps against the engine clock.
type Param struct {
	mu       sync.Mutex
	clock    func() time.Duration
	base     float64
	baseTime time.Duration
	min, max float64
	events   []automationEvent
}

var _ graph.Param = (*Param)(nil)

func newParam(clock func() time.Duration, initial, min, max float64) *Param {
	return &Param{clock: clock, base: clamp(initial, min, max), min: min, max: max}
}

// Value returns the parameter value at the engine's current time.
func (p *Param) Value() float64 {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(now)
}

// SetValueAt schedules a step to v at time at.
func (p *Param) SetValueAt(v float64, at time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.insert(automationEvent{kind: setEvent, value: clamp(v, p.min, p.max), at: at})
}

// LinearRampTo schedules a linear ramp from the preceding event to v, ending at end.
func (p *Param) LinearRampTo(v float64, end time.Duration) {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		// Anchor the ramp at the present value so it starts where the signal is.
		p.insert(automationEvent{kind: setEvent, value: p.valueAt(now), at: now})
	}
	p.insert(automationEvent{kind: rampEvent, value: clamp(v, p.min, p.max), at: end})
}

// CancelFrom removes every event scheduled at or after at.
func (p *Param) CancelFrom(at time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.at < at {
			kept = append(kept, ev)
		}
	}
	p.events = kept
}

// Pending reports whether any event ends after the current time.
func (p *Param) Pending() bool {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range p.events {
		if ev.at > now {
			return true
		}
	}
	return false
}

func (p *Param) insert(ev automationEvent) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].at > ev.at })
	p.events = append(p.events, automationEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// valueAt must be called with p.mu held.
func (p *Param) valueAt(t time.Duration) float64 {
	prevValue, prevTime := p.base, p.baseTime
	for _, ev := range p.events {
		if ev.at <= t {
			prevValue, prevTime = ev.value, ev.at
			continue
		}
		if ev.kind == rampEvent {
			span := ev.at - prevTime
			if span <= 0 {
				return ev.value
			}
			frac := float64(t-prevTime) / float64(span)
			return prevValue + (ev.value-prevValue)*frac
		}
		return prevValue
	}
	return prevValue
}

// fill writes per-sample values for a block starting at start.
func (p *Param) fill(dst []float64, start time.Duration, sampleRate int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		for i := range dst {
			dst[i] = p.base
		}
		return
	}
	for i := range dst {
		dst[i] = p.valueAt(start + frameDuration(int64(i), sampleRate))
	}
}

// sample returns the value at t for block-rate parameters.
func (p *Param) sample(t time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(t)
}

// settle folds events that finished before t into the base value.
func (p *Param) settle(t time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	last := -1
	for i, ev := range p.events {
		if ev.at <= t {
			last = i
		}
	}
	if last < 0 {
		return
	}
	p.base, p.baseTime = p.events[last].value, p.events[last].at
	p.events = append(p.events[:0], p.events[last+1:]...)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func frameDuration(frames int64, sampleRate int) time.Duration {
	return time.Duration(frames * int64(time.Second) / int64(sampleRate))
}
