//go:build integration

package steps

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"vidflow/domain/capture"
	"vidflow/domain/export"
	"vidflow/domain/graph"
	"vidflow/domain/wav"
)

// toneDecoder stands in for ffmpeg and returns a fixed-length 220 Hz tone
type toneDecoder struct {
	mu       sync.Mutex
	duration time.Duration
	calls    int
}

func (d *toneDecoder) Decode(ctx context.Context, location string, sampleRate, channels int) (wav.Buffer, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	frames := wav.FramesFor(d.duration, sampleRate)
	buf := wav.Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		ch := make([]float32, frames)
		for i := range ch {
			ch[i] = float32(0.25 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate)))
		}
		buf.Channels[c] = ch
	}
	return buf, nil
}

func (d *toneDecoder) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// wavSink records a tap as a single WAV chunk so scenarios run without libopus
type wavSink struct{}

func (wavSink) Open(tap graph.Tap) (capture.Session, error) {
	blocks, unsubscribe := tap.Subscribe()
	s := &wavSession{
		buf:         wav.Buffer{SampleRate: tap.SampleRate(), Channels: make([][]float32, tap.Channels())},
		chunks:      make(chan []byte, 1),
		errs:        make(chan error, 1),
		done:        make(chan struct{}),
		unsubscribe: unsubscribe,
	}
	go func() {
		defer close(s.done)
		for block := range blocks {
			for c := range s.buf.Channels {
				s.buf.Channels[c] = append(s.buf.Channels[c], block[c%len(block)]...)
			}
		}
	}()
	return s, nil
}

type wavSession struct {
	buf         wav.Buffer
	chunks      chan []byte
	errs        chan error
	done        chan struct{}
	unsubscribe func()
	once        sync.Once
	err         error
}

func (s *wavSession) Chunks() <-chan []byte { return s.chunks }
func (s *wavSession) Errors() <-chan error  { return s.errs }
func (s *wavSession) MimeType() string      { return "audio/wav" }
func (s *wavSession) Extension() string     { return "wav" }

func (s *wavSession) Stop() error {
	s.once.Do(func() {
		s.unsubscribe()
		<-s.done
		data, err := wav.Encode(s.buf)
		if err == nil {
			s.chunks <- data
		}
		s.err = err
		close(s.chunks)
	})
	return s.err
}

type wavDecoder struct{}

func (wavDecoder) Decode(blob []byte) (wav.Buffer, error) { return wav.Decode(blob) }

// memoryEngine is a transcoder whose working storage is a map
type memoryEngine struct {
	mu    sync.Mutex
	files map[string][]byte
	args  [][]string
}

func (e *memoryEngine) WriteFile(name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[name] = data
	return nil
}

func (e *memoryEngine) ReadFile(name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", name)
	}
	return data, nil
}

func (e *memoryEngine) DeleteFile(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, name)
	return nil
}

func (e *memoryEngine) Exec(ctx context.Context, args []string, onProgress func(ratio float64)) error {
	e.mu.Lock()
	e.args = append(e.args, args)
	e.files[args[len(args)-1]] = []byte("transcoded video")
	e.mu.Unlock()
	for _, r := range []float64{0.25, 0.5, 1} {
		if err := ctx.Err(); err != nil {
			return err
		}
		onProgress(r)
	}
	return nil
}

func (e *memoryEngine) Files() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.files)
}

type countingLoader struct {
	mu     sync.Mutex
	engine *memoryEngine
	loads  int
}

func newCountingLoader() *countingLoader {
	return &countingLoader{engine: &memoryEngine{files: make(map[string][]byte)}}
}

func (l *countingLoader) Load(ctx context.Context) (export.Transcoder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	return l.engine, nil
}

func (l *countingLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *countingLoader) Version(ctx context.Context) (string, error) {
	return "ffmpeg version test", nil
}

type staticSources struct{}

func (staticSources) ReadSource(path string) ([]byte, error) {
	return []byte("source video " + path), nil
}

// recordingStatus keeps every progress value it is given
type recordingStatus struct {
	mu       sync.Mutex
	progress []float64
	toasts   []string
}

func (r *recordingStatus) Title(string)  {}
func (r *recordingStatus) Status(string) {}

func (r *recordingStatus) Progress(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingStatus) Toast(message string, severity export.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, message)
}

func (r *recordingStatus) Values() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.progress...)
}
