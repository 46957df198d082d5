package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"vidflow/domain/graph"
	"vidflow/domain/media"
	"vidflow/domain/wav"
	"vidflow/infrastructure/engine"

	"github.com/sirupsen/logrus"
)

// FrameDuration is the length of audio pushed to the engine per tick.
const FrameDuration = 20 * time.Millisecond

// ErrNotLoaded is returned when playing before media is loaded.
var ErrNotLoaded = errors.New("no media loaded")

// Player is a media element backed by decoded PCM. While running it pushes
// one frame of audio per tick into the attached engine, or silence when paused.
type Player struct {
	mu       sync.Mutex
	pcm      wav.Buffer
	loaded   bool
	pos      int
	paused   bool
	renderer engine.Renderer
	subs     map[media.Event]map[chan struct{}]struct{}

	speed float64
	log   *logrus.Entry
}

var _ media.Element = (*Player)(nil)

// Option is a functional option for configuring Player
type Option func(*Player)

// WithSpeed runs the playback clock faster or slower than real time.
func WithSpeed(speed float64) Option {
	return func(p *Player) {
		if speed > 0 {
			p.speed = speed
		}
	}
}

// New creates an empty, paused player.
func New(opts ...Option) *Player {
	p := &Player{
		paused: true,
		speed:  1,
		subs:   make(map[media.Event]map[chan struct{}]struct{}),
		log:    logrus.WithField("component", "player"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the current media and announces its metadata.
func (p *Player) Load(buf wav.Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.pcm = buf
	p.loaded = true
	p.pos = 0
	p.paused = true
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"duration":    p.Duration().String(),
		"sample_rate": buf.SampleRate,
		"channels":    buf.NumChannels(),
	}).Info("media loaded")
	p.fire(media.EventLoadedMetadata)
	return nil
}

// Attach implements engine.Attacher.
func (p *Player) Attach(r engine.Renderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderer = r
}

func (p *Player) MetadataLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.framesToDuration(p.pos)
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.framesToDuration(p.pcm.Frames())
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Play resumes playback. Playing from the end restarts from the beginning.
func (p *Player) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNotLoaded
	}
	if p.pos >= p.pcm.Frames() {
		p.pos = 0
	}
	p.paused = false
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Seek moves the playhead and fires EventSeeked.
func (p *Player) Seek(t time.Duration) {
	p.mu.Lock()
	frames := p.pcm.Frames()
	pos := 0
	if p.pcm.SampleRate > 0 && t > 0 {
		pos = int(int64(t) * int64(p.pcm.SampleRate) / int64(time.Second))
	}
	if pos > frames {
		pos = frames
	}
	p.pos = pos
	p.mu.Unlock()

	p.fire(media.EventSeeked)
}

// Subscribe implements media.Element.
func (p *Player) Subscribe(ev media.Event) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	if p.subs[ev] == nil {
		p.subs[ev] = make(map[chan struct{}]struct{})
	}
	p.subs[ev][ch] = struct{}{}
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		delete(p.subs[ev], ch)
		p.mu.Unlock()
	}
}

// Subscribers returns the number of listeners registered for ev.
func (p *Player) Subscribers(ev media.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs[ev])
}

func (p *Player) fire(ev media.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs[ev] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run drives playback until ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	interval := time.Duration(float64(FrameDuration) / p.speed)
	if interval <= 0 {
		interval = time.Microsecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Step()
		}
	}
}

// Step advances playback by one frame and renders it.
func (p *Player) Step() {
	p.mu.Lock()
	rate := p.pcm.SampleRate
	if rate == 0 {
		rate = engine.DefaultSampleRate
	}
	frameSize := int(int64(rate) * int64(FrameDuration) / int64(time.Second))
	channels := p.pcm.NumChannels()
	if channels == 0 {
		channels = engine.DefaultChannels
	}

	block := make(graph.Block, channels)
	for c := range block {
		block[c] = make([]float32, frameSize)
	}

	ended := false
	if p.loaded && !p.paused {
		total := p.pcm.Frames()
		n := min(frameSize, total-p.pos)
		for c := range block {
			copy(block[c], p.pcm.Channels[c][p.pos:p.pos+n])
		}
		p.pos += n
		if p.pos >= total {
			p.paused = true
			ended = true
		}
	}
	renderer := p.renderer
	p.mu.Unlock()

	if renderer != nil {
		if err := renderer.Render(block); err != nil && !errors.Is(err, engine.ErrClosed) {
			p.log.WithError(err).Warn("render failed")
		}
	}
	if ended {
		p.fire(media.EventEnded)
	}
}

func (p *Player) framesToDuration(frames int) time.Duration {
	if p.pcm.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(p.pcm.SampleRate))
}
