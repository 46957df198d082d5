package capture

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"vidflow/domain/capture"
	"vidflow/domain/failure"
	"vidflow/domain/graph"
	"vidflow/domain/media"
	"vidflow/domain/preset"

	"github.com/sirupsen/logrus"
)

// CaptureShare is the slice of overall export progress covered by capture.
const CaptureShare = 70.0

// Graph is the part of the signal graph manager the recorder borrows.
type Graph interface {
	Preset() preset.ID
	EnsureReady(ctx context.Context) error
	CaptureProcessedOutput() (graph.Tap, func(), error)
}

// Recorder plays the media once from the start while recording the
// processed output, then puts the playhead back where it was.
type Recorder struct {
	graph        Graph
	media        media.Element
	sinks        capture.Service
	pollInterval time.Duration
	log          *logrus.Entry
}

// Option is a functional option for configuring Recorder
type Option func(*Recorder)

// WithPollInterval sets how often progress is sampled
func WithPollInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// NewRecorder creates a capture recorder
func NewRecorder(g Graph, el media.Element, sinks capture.Service, opts ...Option) *Recorder {
	r := &Recorder{
		graph:        g,
		media:        el,
		sinks:        sinks,
		pollInterval: 250 * time.Millisecond,
		log:          logrus.WithField("component", "capture"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type playbackState struct {
	at     time.Duration
	paused bool
}

// Capture records the processed signal for the whole media duration.
// Cancelling ctx aborts the capture; the playhead and paused state are
// restored on every exit path. onProgress receives values in [0, 70].
func (r *Recorder) Capture(ctx context.Context, onProgress func(percent float64)) (*capture.Result, error) {
	if !r.graph.Preset().Active() {
		return nil, failure.ErrNoActivePreset
	}
	if err := r.graph.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if err := media.WaitMetadata(ctx, r.media); err != nil {
		return nil, err
	}

	tap, release, err := r.graph.CaptureProcessedOutput()
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot := playbackState{at: r.media.CurrentTime(), paused: r.media.Paused()}
	defer r.restore(snapshot)

	session, err := r.sinks.Open(tap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrCaptureFailure, err)
	}

	var blob bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for chunk := range session.Chunks() {
			blob.Write(chunk)
		}
	}()
	stopSink := func() error {
		err := session.Stop()
		<-drained
		return err
	}

	// An end of the previous playback must not count as the end of the capture
	r.media.Pause()
	if err := media.SeekAndWait(ctx, r.media, 0); err != nil {
		stopSink()
		return nil, err
	}
	ended, unsubscribe := r.media.Subscribe(media.EventEnded)
	defer unsubscribe()

	if err := r.media.Play(ctx); err != nil {
		stopSink()
		return nil, fmt.Errorf("%w: playback failed: %v", failure.ErrCaptureFailure, err)
	}

	r.log.WithFields(logrus.Fields{
		"function": "Capture",
		"duration": r.media.Duration().String(),
		"preset":   r.graph.Preset().Key(),
	}).Info("capture started")

	reported := 0.0
	report := func(p float64) {
		if p > reported {
			reported = p
			if onProgress != nil {
				onProgress(p)
			}
		}
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.media.Pause()
			stopSink()
			r.log.Info("capture aborted")
			return nil, ctx.Err()
		case sinkErr := <-session.Errors():
			r.media.Pause()
			stopSink()
			return nil, fmt.Errorf("%w: %v", failure.ErrCaptureFailure, sinkErr)
		case <-ticker.C:
			report(r.progress())
		case <-ended:
			r.media.Pause()
			if err := stopSink(); err != nil {
				return nil, fmt.Errorf("%w: %v", failure.ErrCaptureFailure, err)
			}
			report(CaptureShare)

			r.log.WithField("bytes", blob.Len()).Info("capture finished")
			return &capture.Result{
				Blob:      blob.Bytes(),
				MimeType:  session.MimeType(),
				Extension: session.Extension(),
				Duration:  r.media.Duration(),
			}, nil
		}
	}
}

func (r *Recorder) progress() float64 {
	duration := r.media.Duration()
	if duration <= 0 {
		return 0
	}
	p := float64(r.media.CurrentTime()) / float64(duration) * CaptureShare
	if p > CaptureShare {
		p = CaptureShare
	}
	return p
}

func (r *Recorder) restore(s playbackState) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := media.SeekAndWait(ctx, r.media, s.at); err != nil {
		r.log.WithError(err).Warn("failed to restore playback position")
	}
	if s.paused {
		r.media.Pause()
		return
	}
	if err := r.media.Play(ctx); err != nil {
		r.log.WithError(err).Warn("failed to resume playback")
	}
}
