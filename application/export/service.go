package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vidflow/domain/capture"
	"vidflow/domain/export"
	"vidflow/domain/failure"
	"vidflow/domain/media"
	"vidflow/domain/preset"
	"vidflow/domain/wav"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Progress checkpoints for the stages after capture.
const (
	encodeStart    = 75.0
	finalizeStart  = 95.0
	videoLoaded    = 20.0
	videoWritten   = 40.0
	transcodeStart = 60.0
	transcodeShare = 35.0
)

// DefaultAudioBitrate is the AAC bitrate used for video re-encodes.
const DefaultAudioBitrate = "192k"

// Graph is the read side of the signal graph manager.
type Graph interface {
	Preset() preset.ID
	Strength() float64
}

// Capturer records the processed signal for the whole media.
type Capturer interface {
	Capture(ctx context.Context, onProgress func(percent float64)) (*capture.Result, error)
}

// Service runs at most one export at a time. It is the only writer of the
// job's status and progress.
type Service struct {
	graph      Graph
	recorder   Capturer
	decoder    capture.Decoder
	engines    *EngineCache
	sources    export.SourceReader
	downloader export.Downloader
	status     export.StatusReporter

	audioBitrate string
	newID        func() string
	log          *logrus.Entry

	mu    sync.Mutex
	job   export.Job
	abort context.CancelFunc
	last  *export.Outcome
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithAudioBitrate sets the AAC bitrate for video exports
func WithAudioBitrate(bitrate string) Option {
	return func(s *Service) {
		if bitrate != "" {
			s.audioBitrate = bitrate
		}
	}
}

// WithIDGenerator overrides job ID generation
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a new export service
func NewService(
	graph Graph,
	recorder Capturer,
	decoder capture.Decoder,
	engines *EngineCache,
	sources export.SourceReader,
	downloader export.Downloader,
	status export.StatusReporter,
	opts ...Option,
) *Service {
	s := &Service{
		graph:        graph,
		recorder:     recorder,
		decoder:      decoder,
		engines:      engines,
		sources:      sources,
		downloader:   downloader,
		status:       status,
		audioBitrate: DefaultAudioBitrate,
		newID:        func() string { return uuid.NewString()[:8] },
		log:          logrus.WithField("component", "export"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a snapshot of the active job, or an Idle job.
func (s *Service) Current() export.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// LastOutcome returns the most recently settled outcome, if any.
func (s *Service) LastOutcome() (export.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return export.Outcome{}, false
	}
	return *s.last, true
}

// Cancel requests cancellation of the active job. It reports whether a job
// was there to cancel.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job.Status != export.Preparing && s.job.Status != export.Running {
		return false
	}
	s.job.Status = export.Cancelling
	s.job.CancelRequested = true
	if s.abort != nil {
		s.abort()
	}
	s.log.WithField("job", s.job.ID).Info("export cancellation requested")
	return true
}

// Start claims the job slot and runs the export in the background. The slot
// is claimed before Start returns, so ExportBusy is reported synchronously.
// The settled result is available from LastOutcome.
func (s *Service) Start(ctx context.Context, kind export.Kind, origin media.Origin) (export.Job, error) {
	if err := s.validate(kind, origin); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Start",
			"kind":     kind.String(),
			"source":   origin.Filename(),
		}).WithError(err).Warn("export rejected")
		return export.Job{}, err
	}
	jobCtx, err := s.begin(context.WithoutCancel(ctx), kind)
	if err != nil {
		return export.Job{}, err
	}
	job := s.Current()

	go func() {
		if kind == export.FullVideo {
			s.runVideo(jobCtx, origin)
			return
		}
		s.runAudio(jobCtx, origin)
	}()
	return job, nil
}

// validate rejects exports that cannot succeed before any resource is taken
func (s *Service) validate(kind export.Kind, origin media.Origin) error {
	if kind == export.FullVideo {
		if !origin.IsLocalFile() {
			return failure.ErrSourceNotReencodable
		}
		return nil
	}
	if !s.graph.Preset().Active() {
		return failure.ErrNoActivePreset
	}
	return nil
}

// begin claims the single job slot.
func (s *Service) begin(ctx context.Context, kind export.Kind) (context.Context, error) {
	id := s.graph.Preset()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job.Status.Active() {
		s.log.WithFields(logrus.Fields{
			"function": "begin",
			"running":  s.job.ID,
			"status":   s.job.Status.String(),
		}).Warn("export rejected, another job is active")
		return nil, failure.ErrExportBusy
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.abort = cancel
	s.job = export.Job{
		ID:        s.newID(),
		Kind:      kind,
		Preset:    id,
		Status:    export.Preparing,
		StartedAt: time.Now(),
	}
	s.log.WithFields(logrus.Fields{
		"job":    s.job.ID,
		"kind":   kind.String(),
		"preset": id.Key(),
	}).Info("export started")
	return jobCtx, nil
}

func (s *Service) running() {
	s.mu.Lock()
	if s.job.Status == export.Preparing {
		s.job.Status = export.Running
	}
	s.mu.Unlock()
}

// advance moves progress forward. Lower values are ignored.
func (s *Service) advance(percent float64) {
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	if percent <= s.job.Progress {
		s.mu.Unlock()
		return
	}
	s.job.Progress = percent
	s.mu.Unlock()

	s.status.Progress(percent)
}

func (s *Service) cancelRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job.CancelRequested
}

// settle records the outcome and returns the slot to Idle.
func (s *Service) settle(disposition export.Disposition, artifact *export.Artifact, location string, err error) *export.Outcome {
	s.mu.Lock()
	job := s.job
	if err != nil {
		job.Status = export.Failed
	} else {
		job.Status = export.Completed
	}
	outcome := &export.Outcome{
		Job:         job,
		Disposition: disposition,
		Artifact:    artifact,
		Location:    location,
		Err:         err,
	}
	s.last = outcome
	if s.abort != nil {
		s.abort()
		s.abort = nil
	}
	s.job = export.Job{}
	s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{
		"job":         job.ID,
		"status":      job.Status.String(),
		"disposition": disposition.String(),
		"elapsed":     time.Since(job.StartedAt).Round(time.Millisecond).String(),
	})
	if err != nil {
		entry.WithError(err).Error("export failed")
	} else {
		entry.Info("export settled")
	}
	return outcome
}

func (s *Service) fail(err error) (*export.Outcome, error) {
	s.status.Status("Export failed")
	s.status.Toast(failure.Message(err), export.Error)
	outcome := s.settle(export.Undelivered, nil, "", err)
	return outcome, err
}

func (s *Service) cancelled() (*export.Outcome, error) {
	s.status.Status("Export cancelled")
	s.status.Toast(failure.Message(failure.ErrCancelled), export.Info)
	return s.settle(export.Cancelled, nil, "", nil), nil
}

func (s *Service) deliver(ctx context.Context, artifact export.Artifact, disposition export.Disposition) (*export.Outcome, error) {
	if s.cancelRequested() {
		return s.cancelled()
	}
	s.advance(finalizeStart)
	s.status.Status("Saving " + artifact.Filename)

	location, err := s.downloader.Deliver(ctx, artifact)
	if err != nil {
		if s.cancelRequested() {
			return s.cancelled()
		}
		return s.fail(fmt.Errorf("deliver %s: %w", artifact.Filename, err))
	}
	s.advance(100)

	if disposition == export.Degraded {
		s.status.Toast(failure.Message(failure.ErrDecodeFailure), export.Warning)
	} else {
		s.status.Toast("Saved "+artifact.Filename, export.Success)
	}
	s.status.Status("Export complete")
	return s.settle(disposition, &artifact, location, nil), nil
}

// ExportAudio captures the processed audio and delivers it as WAV. When the
// capture cannot be converted the compressed recording is delivered instead.
func (s *Service) ExportAudio(ctx context.Context, origin media.Origin) (*export.Outcome, error) {
	jobCtx, err := s.begin(ctx, export.AudioOnly)
	if err != nil {
		return nil, err
	}
	return s.runAudio(jobCtx, origin)
}

func (s *Service) runAudio(jobCtx context.Context, origin media.Origin) (*export.Outcome, error) {
	s.status.Title("Exporting processed audio")

	id := s.graph.Preset()
	if err := s.validate(export.AudioOnly, origin); err != nil {
		return s.fail(err)
	}

	s.running()
	s.status.Status("Recording processed audio")
	result, err := s.recorder.Capture(jobCtx, s.advance)
	if err != nil {
		if s.cancelRequested() || errors.Is(err, context.Canceled) {
			return s.cancelled()
		}
		return s.fail(err)
	}
	if s.cancelRequested() {
		return s.cancelled()
	}

	s.advance(encodeStart)
	s.status.Status("Converting to WAV")
	artifact, disposition := s.toWAV(result, origin.Basename(), id)
	return s.deliver(jobCtx, artifact, disposition)
}

func (s *Service) toWAV(result *capture.Result, basename string, id preset.ID) (export.Artifact, export.Disposition) {
	native := export.Artifact{
		Bytes:    result.Blob,
		Filename: export.OutputName(basename, id, result.Extension),
		MimeType: result.MimeType,
	}

	buf, err := s.decoder.Decode(result.Blob)
	if err != nil {
		s.log.WithError(err).Warn("capture decode failed, delivering native container")
		return native, export.Degraded
	}
	// The recording starts with the sink's lead-in, so extra frames come off the front
	if result.Duration > 0 {
		buf = buf.FitEnd(wav.FramesFor(result.Duration, buf.SampleRate))
	}
	data, err := wav.Encode(buf)
	if err != nil {
		s.log.WithError(err).Warn("wav encode failed, delivering native container")
		return native, export.Degraded
	}
	return export.Artifact{
		Bytes:    data,
		Filename: export.OutputName(basename, id, "wav"),
		MimeType: "audio/wav",
	}, export.Delivered
}

// ExportVideo re-encodes a local source's audio with the current preset's
// filter expression while copying the video stream.
func (s *Service) ExportVideo(ctx context.Context, origin media.Origin) (*export.Outcome, error) {
	jobCtx, err := s.begin(ctx, export.FullVideo)
	if err != nil {
		return nil, err
	}
	return s.runVideo(jobCtx, origin)
}

func (s *Service) runVideo(jobCtx context.Context, origin media.Origin) (*export.Outcome, error) {
	s.status.Title("Exporting video")

	if err := s.validate(export.FullVideo, origin); err != nil {
		return s.fail(err)
	}

	s.running()
	s.status.Status("Loading video encoder")
	engine, err := s.engines.Acquire(jobCtx)
	if err != nil {
		if s.cancelRequested() {
			return s.cancelled()
		}
		return s.fail(fmt.Errorf("%w: %v", failure.ErrEngineLoadFailure, err))
	}
	s.advance(videoLoaded)
	if s.cancelRequested() {
		return s.cancelled()
	}

	data, err := s.sources.ReadSource(origin.Location)
	if err != nil {
		return s.fail(fmt.Errorf("%w: read source: %v", failure.ErrTranscodeFailure, err))
	}

	input := "input." + origin.Extension()
	if origin.Extension() == "" {
		input = "input"
	}
	const output = "output.mp4"
	defer s.cleanup(engine, input, output)

	s.status.Status("Preparing video")
	if err := engine.WriteFile(input, data); err != nil {
		return s.fail(fmt.Errorf("%w: write input: %v", failure.ErrTranscodeFailure, err))
	}
	s.advance(videoWritten)

	id := s.graph.Preset()
	expr := preset.ComputeParameters(id, s.graph.Strength()).FilterExpression()
	args := VideoArgs(input, output, expr, s.audioBitrate)

	s.advance(transcodeStart)
	s.status.Status("Re-encoding audio")
	err = engine.Exec(jobCtx, args, func(ratio float64) {
		s.advance(transcodeStart + clampRatio(ratio)*transcodeShare)
	})
	if s.cancelRequested() {
		return s.cancelled()
	}
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", failure.ErrTranscodeFailure, err))
	}

	out, err := engine.ReadFile(output)
	if err != nil {
		return s.fail(fmt.Errorf("%w: read output: %v", failure.ErrTranscodeFailure, err))
	}
	return s.deliver(jobCtx, export.Artifact{
		Bytes:    out,
		Filename: export.OutputName(origin.Basename(), id, "mp4"),
		MimeType: "video/mp4",
	}, export.Delivered)
}

func (s *Service) cleanup(engine export.Transcoder, names ...string) {
	for _, name := range names {
		if err := engine.DeleteFile(name); err != nil {
			s.log.WithError(err).WithField("file", name).Warn("failed to clean up transcoder storage")
		}
	}
}

// VideoArgs builds the transcode arguments: video copied, audio re-encoded to
// AAC through expr. An empty expr re-encodes without filtering.
func VideoArgs(input, output, expr, bitrate string) []string {
	args := []string{"-i", input, "-map", "0:v:0?", "-map", "0:a:0?", "-c:v", "copy"}
	if expr != "" {
		args = append(args, "-af", expr)
	}
	return append(args, "-c:a", "aac", "-b:a", bitrate, "-movflags", "+faststart", output)
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
