package oggopus

import (
	"errors"
	"fmt"
	"sync"

	"vidflow/domain/capture"
	"vidflow/domain/graph"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/sirupsen/logrus"
	"gopkg.in/hraban/opus.v2"
)

const (
	// MimeType is the container type of recorded chunks.
	MimeType = "audio/ogg; codecs=opus"
	// Extension is the native file extension of recordings.
	Extension = "ogg"

	// DefaultBitrate is the Opus target bitrate in bits per second.
	DefaultBitrate = 128000

	chunkBuffer = 64
	maxPacket   = 4000
)

// Recorder implements capture.Service by encoding a tap to Opus in Ogg pages.
type Recorder struct {
	bitrate int
	log     *logrus.Entry
}

var _ capture.Service = (*Recorder)(nil)

// RecorderOption is a functional option for configuring Recorder
type RecorderOption func(*Recorder)

// WithBitrate sets the Opus target bitrate
func WithBitrate(bps int) RecorderOption {
	return func(r *Recorder) {
		if bps > 0 {
			r.bitrate = bps
		}
	}
}

// NewRecorder creates an Ogg/Opus capture service
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		bitrate: DefaultBitrate,
		log:     logrus.WithField("component", "oggopus"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts recording tap. Header pages are emitted immediately.
func (r *Recorder) Open(tap graph.Tap) (capture.Session, error) {
	rate, channels := tap.SampleRate(), tap.Channels()
	if !SupportedRate(rate) {
		return nil, fmt.Errorf("opus cannot encode at %d Hz", rate)
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("opus capture supports 1 or 2 channels, got %d", channels)
	}

	enc, err := opus.NewEncoder(rate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(r.bitrate); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	s := &session{
		enc:       enc,
		framer:    NewFramer(channels, FrameSize(rate)),
		frameSize: FrameSize(rate),
		chunks:    make(chan []byte, chunkBuffer),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
		packet:    make([]byte, maxPacket),
		log:       r.log,
	}

	s.ogg, err = oggwriter.NewWith(chunkWriter{s.chunks}, uint32(rate), uint16(channels))
	if err != nil {
		close(s.chunks)
		return nil, fmt.Errorf("failed to start ogg stream: %w", err)
	}

	blocks, unsubscribe := tap.Subscribe()
	s.unsubscribe = unsubscribe
	go s.run(blocks)

	r.log.WithFields(logrus.Fields{
		"function":    "Open",
		"sample_rate": rate,
		"channels":    channels,
		"bitrate":     r.bitrate,
	}).Debug("recording started")

	return s, nil
}

// chunkWriter turns each Ogg page write into a chunk.
type chunkWriter struct {
	chunks chan<- []byte
}

func (w chunkWriter) Write(p []byte) (int, error) {
	w.chunks <- append([]byte(nil), p...)
	return len(p), nil
}

type session struct {
	enc         *opus.Encoder
	ogg         *oggwriter.OggWriter
	framer      *Framer
	frameSize   int
	packet      []byte
	sequence    uint16
	timestamp   uint32
	chunks      chan []byte
	errs        chan error
	done        chan struct{}
	unsubscribe func()
	failed      bool

	stopOnce sync.Once
	stopErr  error
	log      *logrus.Entry
}

func (s *session) Chunks() <-chan []byte { return s.chunks }
func (s *session) Errors() <-chan error  { return s.errs }
func (s *session) MimeType() string      { return MimeType }
func (s *session) Extension() string     { return Extension }

func (s *session) run(blocks <-chan graph.Block) {
	defer close(s.done)
	for block := range blocks {
		if s.failed {
			continue
		}
		if err := s.framer.Push(block, s.writeFrame); err != nil {
			s.fail(err)
		}
	}
}

func (s *session) writeFrame(frame []float32) error {
	n, err := s.enc.EncodeFloat32(frame, s.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: s.sequence,
			Timestamp:      s.timestamp,
		},
		Payload: append([]byte(nil), s.packet[:n]...),
	}
	s.sequence++
	s.timestamp += uint32(s.frameSize)
	if err := s.ogg.WriteRTP(pkt); err != nil {
		return fmt.Errorf("ogg write: %w", err)
	}
	return nil
}

func (s *session) fail(err error) {
	s.failed = true
	s.log.WithError(err).Error("recording failed")
	select {
	case s.errs <- err:
	default:
	}
}

// Stop detaches from the tap, flushes the last partial frame, closes the Ogg
// stream and then closes Chunks.
func (s *session) Stop() error {
	s.stopOnce.Do(func() {
		s.unsubscribe()
		<-s.done

		var errs []error
		if !s.failed {
			errs = append(errs, s.framer.Flush(s.writeFrame))
		}
		errs = append(errs, s.ogg.Close())
		close(s.chunks)
		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}
