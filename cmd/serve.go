package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	appgraph "vidflow/application/graph"
	"vidflow/domain/media"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/ffmpeg"
	"vidflow/infrastructure/filesystem"
	"vidflow/infrastructure/monitor"
	"vidflow/infrastructure/speaker"
	"vidflow/infrastructure/status"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveSource   string
	servePreset   string
	serveStrength float64
	serveAddress  string
	serveSpeaker  bool
	serveStart    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local control API and live monitor for one source",
	Long: `Load a source and serve a local JSON API to play it, switch presets,
adjust strength, toggle the processed path, and start or cancel exports.

POST /api/play builds the processing graph on first use. Once playing,
POST /api/monitor/offer negotiates a WebRTC peer that hears the processed
output. With --speaker the output also plays on the local sound device
(requires a build with -tags speaker).

Example:
  vidflow serve --source sermon.mp4 --addr 127.0.0.1:8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveSource, "source", "", "Path or URL of the media to load (required)")
	serveCmd.Flags().StringVar(&servePreset, "preset", "", "Initial preset (default from config)")
	serveCmd.Flags().Float64Var(&serveStrength, "strength", 0, "Initial strength 0-100 (default from config)")
	serveCmd.Flags().StringVar(&serveAddress, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveSpeaker, "speaker", false, "Also play the output on the local sound device")
	serveCmd.Flags().StringVar(&serveStart, "start", "", "Initial playhead position (HH:MM:SS, MM:SS or seconds)")
	serveCmd.MarkFlagRequired("source")
}

// ServeInput contains the input parameters for the serve command
type ServeInput struct {
	Source   string
	Preset   string
	Strength float64
	Address  string
	Speaker  bool
	Start    time.Duration
}

func runServe(cmd *cobra.Command, args []string) error {
	c := effectiveConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	input := ServeInput{
		Source:   serveSource,
		Preset:   c.Defaults.Preset,
		Strength: c.Defaults.Strength,
		Address:  c.Monitor.ListenAddress,
		Speaker:  serveSpeaker,
	}
	if cmd.Flags().Changed("preset") {
		input.Preset = servePreset
	}
	if cmd.Flags().Changed("strength") {
		input.Strength = serveStrength
	}
	if serveAddress != "" {
		input.Address = serveAddress
	}
	if serveStart != "" {
		start, err := media.ParsePosition(serveStart)
		if err != nil {
			return &ValidationError{
				Message:    err.Error(),
				Suggestion: "vidflow serve --source <file> --start 00:12:30",
			}
		}
		input.Start = start
	}

	downloader, err := newDownloader(ctx, c, "", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	loader := ffmpeg.NewLoader(
		ffmpeg.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		ffmpeg.WithFFprobePath(c.FFmpeg.FFprobePath),
		ffmpeg.WithWorkRoot(c.Paths.WorkDirectory),
	)
	deps := ExportDependencies{
		Decoder:    ffmpeg.NewDecoder(ffmpeg.WithDecoderFFmpegPath(c.FFmpeg.FFmpegPath)),
		Loader:     loader,
		Sources:    filesystem.NewChecker(),
		Downloader: downloader,
		Status:     status.NewTextReporter(cmd.ErrOrStderr()),
	}

	return RunServeWithDependencies(ctx, c, deps, loader, input, func(h http.Handler) error {
		return listenAndServe(ctx, input.Address, h)
	})
}

// RunServeWithDependencies loads the source and hands the API handler to
// serve, which blocks until the server stops.
func RunServeWithDependencies(
	ctx context.Context,
	c *config.Config,
	deps ExportDependencies,
	health monitor.HealthChecker,
	input ServeInput,
	serve func(http.Handler) error,
) error {
	origin, err := parseSource(input.Source)
	if err != nil {
		return err
	}
	id, err := parsePreset(input.Preset)
	if err != nil {
		return err
	}

	sess := newSession(c, deps, origin, id, input.Strength)
	defer sess.Close()
	if err := sess.load(ctx, c, deps.Decoder); err != nil {
		return err
	}
	if input.Start > 0 {
		if input.Start >= sess.player.Duration() {
			return &ValidationError{
				Message: fmt.Sprintf("start %s is past the end of %s (%s)",
					media.FormatPosition(input.Start), origin.Filename(), media.FormatPosition(sess.player.Duration())),
				Suggestion: "vidflow serve --source <file> --start 0",
			}
		}
		sess.player.Seek(input.Start)
	}

	webrtc := monitor.NewWebRTCHandler(sess.graph.Output, monitor.DefaultBitrate)
	defer webrtc.Close()

	g := &speakerGraph{Manager: sess.graph, enabled: input.Speaker}
	defer g.closeSpeaker()

	server := monitor.NewServer(g, sess.player, sess.exports, health, origin, webrtc)

	logrus.WithFields(logrus.Fields{
		"address": input.Address,
		"source":  origin.Filename(),
		"preset":  id.Key(),
	}).Info("control API listening")
	return serve(server.Handler())
}

// listenAndServe runs the HTTP server until ctx is cancelled
func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// speakerGraph opens the local speaker the first time the graph is built
type speakerGraph struct {
	*appgraph.Manager
	enabled bool

	once sync.Once
	out  *speaker.Output
}

func (g *speakerGraph) EnsureReady(ctx context.Context) error {
	if err := g.Manager.EnsureReady(ctx); err != nil {
		return err
	}
	if !g.enabled {
		return nil
	}
	g.once.Do(func() {
		tap, ok := g.Manager.Output()
		if !ok {
			return
		}
		out, err := speaker.Open(tap)
		if err != nil {
			logrus.WithError(err).Warn("local speaker disabled")
			return
		}
		g.out = out
	})
	return nil
}

func (g *speakerGraph) closeSpeaker() {
	if g.out != nil {
		g.out.Close()
	}
}
