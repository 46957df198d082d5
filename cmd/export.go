package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	appdistribution "vidflow/application/distribution"
	appnotification "vidflow/application/notification"
	"vidflow/domain/capture"
	"vidflow/domain/export"
	"vidflow/domain/notification"
	"vidflow/domain/wav"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/drive"
	"vidflow/infrastructure/ffmpeg"
	"vidflow/infrastructure/filesystem"
	"vidflow/infrastructure/gmail"
	"vidflow/infrastructure/status"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	exportSource   string
	exportPreset   string
	exportStrength float64
	exportDelivery string
	exportPlain    bool
	exportNotify   []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export processed audio or video",
	Long: `Export the loaded source with the selected preset applied.

  audio  plays the source once through the processing chain, records it and
         saves a WAV file (falls back to the recorded .ogg if conversion fails)
  video  re-encodes a local video file with FFmpeg, copying the picture and
         filtering the soundtrack with the preset's parameters

Press c or Ctrl+C while an export runs to cancel it.`,
}

var exportAudioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Export the processed soundtrack as WAV",
	Long: `Export the processed soundtrack as WAV.

Example:
  vidflow export audio --source sermon.mp4 --preset speech --strength 80`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, export.AudioOnly)
	},
}

var exportVideoCmd = &cobra.Command{
	Use:   "video",
	Short: "Re-encode a local video with the processed soundtrack",
	Long: `Re-encode a local video with the processed soundtrack.

The picture stream is copied unchanged. Only local files can be re-encoded.

Example:
  vidflow export video --source "/recordings/2025-12-28.mp4" --preset music`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, export.FullVideo)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportAudioCmd)
	exportCmd.AddCommand(exportVideoCmd)

	for _, c := range []*cobra.Command{exportAudioCmd, exportVideoCmd} {
		c.Flags().StringVar(&exportSource, "source", "", "Path or URL of the media to export (required)")
		c.Flags().StringVar(&exportPreset, "preset", "", "Preset: off, speech or music (default from config)")
		c.Flags().Float64Var(&exportStrength, "strength", 0, "Preset strength 0-100 (default from config)")
		c.Flags().StringVar(&exportDelivery, "delivery", "", "Where to deliver the result: file or drive (default from config)")
		c.Flags().BoolVar(&exportPlain, "plain", false, "Print progress as plain lines instead of the interactive view")
		c.Flags().StringSliceVar(&exportNotify, "notify", nil, "Email the Drive link to these addresses (default from config)")
		c.MarkFlagRequired("source")
	}
}

// SourceDecoder decodes a media location into PCM for playback
type SourceDecoder interface {
	Decode(ctx context.Context, location string, sampleRate, channels int) (wav.Buffer, error)
}

// ExportInput contains the input parameters for export commands
type ExportInput struct {
	Kind     export.Kind
	Source   string
	Preset   string
	Strength float64
}

// ExportDependencies are the ports an export runs against. Sinks and
// CaptureDecoder default to the Ogg/Opus implementation when nil.
type ExportDependencies struct {
	Decoder        SourceDecoder
	Loader         export.TranscoderLoader
	Sources        export.SourceReader
	Downloader     export.Downloader
	Status         export.StatusReporter
	Sinks          capture.Service
	CaptureDecoder capture.Decoder
}

func runExport(cmd *cobra.Command, kind export.Kind) error {
	c := effectiveConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	input := ExportInput{
		Kind:     kind,
		Source:   exportSource,
		Preset:   c.Defaults.Preset,
		Strength: c.Defaults.Strength,
	}
	if cmd.Flags().Changed("preset") {
		input.Preset = exportPreset
	}
	if cmd.Flags().Changed("strength") {
		input.Strength = exportStrength
	}
	if cmd.Flags().Changed("notify") {
		override := *c
		override.Email.Recipients = exportNotify
		c = &override
	}

	downloader, err := newDownloader(ctx, c, exportDelivery, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	deps := ExportDependencies{
		Decoder: ffmpeg.NewDecoder(ffmpeg.WithDecoderFFmpegPath(c.FFmpeg.FFmpegPath)),
		Loader: ffmpeg.NewLoader(
			ffmpeg.WithFFmpegPath(c.FFmpeg.FFmpegPath),
			ffmpeg.WithFFprobePath(c.FFmpeg.FFprobePath),
			ffmpeg.WithWorkRoot(c.Paths.WorkDirectory),
		),
		Sources:    filesystem.NewChecker(),
		Downloader: downloader,
	}

	out := cmd.OutOrStdout()
	if exportPlain || !isTerminal(os.Stdout) {
		deps.Status = status.NewTextReporter(out)
		outcome, err := RunExportWithDependencies(ctx, c, deps, input)
		printOutcome(out, outcome)
		return err
	}

	// The view's cancel key cancels the same context as Ctrl+C
	uiCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	program := tea.NewProgram(status.NewModel(func() bool { cancel(); return true }))
	reporter := status.NewTUIReporter(program)
	deps.Status = reporter

	uiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		uiDone <- err
	}()

	outcome, err := RunExportWithDependencies(uiCtx, c, deps, input)
	location := ""
	if outcome != nil {
		location = outcome.Location
	}
	reporter.Finish(location, err)
	if uiErr := <-uiDone; uiErr != nil {
		logrus.WithError(uiErr).Warn("progress view stopped")
	}
	printOutcome(out, outcome)
	return err
}

// RunExportWithDependencies runs one export with injected dependencies.
// Cancelling ctx cancels the export; it still settles before returning.
func RunExportWithDependencies(ctx context.Context, c *config.Config, deps ExportDependencies, input ExportInput) (*export.Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, &ValidationError{
			Message:    fmt.Sprintf("invalid configuration in %s:\n%v", cfgFile, err),
			Suggestion: "vidflow config list",
		}
	}
	origin, err := parseSource(input.Source)
	if err != nil {
		return nil, err
	}
	id, err := parsePreset(input.Preset)
	if err != nil {
		return nil, err
	}
	if input.Strength < 0 || input.Strength > 100 {
		return nil, &ValidationError{
			Message:    fmt.Sprintf("strength %g is out of range (0-100)", input.Strength),
			Suggestion: "vidflow export audio --strength 75 ...",
		}
	}

	sess := newSession(c, deps, origin, id, input.Strength)
	defer sess.Close()

	// Only a capture needs the source decoded; Off is rejected by the service
	if input.Kind == export.AudioOnly && id.Active() {
		deps.Status.Status("Loading " + origin.Filename())
		if err := sess.load(ctx, c, deps.Decoder); err != nil {
			return nil, err
		}
	}
	svc := sess.exports

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			svc.Cancel()
		case <-done:
		}
	}()

	logrus.WithFields(logrus.Fields{
		"kind":     input.Kind.String(),
		"source":   origin.Filename(),
		"preset":   id.Key(),
		"strength": input.Strength,
	}).Debug("starting export")

	jobCtx := context.WithoutCancel(ctx)
	var outcome *export.Outcome
	if input.Kind == export.FullVideo {
		outcome, err = svc.ExportVideo(jobCtx, origin)
	} else {
		outcome, err = svc.ExportAudio(jobCtx, origin)
	}
	return outcome, explain(err)
}

// newDownloader builds the delivery target named by override or the config
func newDownloader(ctx context.Context, c *config.Config, override string, prompt io.Writer) (export.Downloader, error) {
	delivery := c.Export.Delivery
	if override != "" {
		delivery = override
	}
	switch delivery {
	case config.DeliveryFile, "":
		return filesystem.NewDownloader(c.Paths.OutputDirectory), nil
	case config.DeliveryDrive:
		return newDriveDownloader(ctx, c, prompt)
	default:
		return nil, &ValidationError{
			Message:    fmt.Sprintf("unknown delivery %q (valid: file, drive)", delivery),
			Suggestion: "vidflow export audio --delivery file ...",
		}
	}
}

// newDriveDownloader uploads to the configured folder, optionally pruning
// old exports first and emailing the link afterwards.
func newDriveDownloader(ctx context.Context, c *config.Config, prompt io.Writer) (export.Downloader, error) {
	if c.Google.ExportFolderID == "" {
		return nil, &ValidationError{
			Message:    "drive delivery needs a folder",
			Suggestion: config.SuggestSetCommand("google.export_folder_id"),
		}
	}

	var recipients []notification.Recipient
	var from notification.Recipient
	if c.Email.Enabled() {
		var err error
		recipients, err = notification.ParseRecipients(c.Email.Recipients)
		if err != nil {
			return nil, &ValidationError{
				Message:    err.Error(),
				Suggestion: config.SuggestSetCommand("email.recipients"),
			}
		}
		if c.Email.FromAddress == "" {
			return nil, &ValidationError{
				Message:    "emailing the link needs a sender address",
				Suggestion: config.SuggestSetCommand("email.from_address"),
			}
		}
		from = notification.Recipient{Name: c.Email.FromName, Address: c.Email.FromAddress}
	}

	oauth := drive.OAuthConfig{
		CredentialsFile: c.Google.CredentialsFile,
		TokenFile:       c.Google.TokenFile,
		Prompt:          prompt,
	}
	if len(recipients) > 0 {
		oauth.Scopes = []string{drive.DriveFileScope, gmail.SendScope}
	}
	ts, err := drive.TokenSource(ctx, oauth)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize Google access: %w", err)
	}

	client, err := drive.NewClientWithTokenSource(ctx, ts, drive.WithFolder(c.Google.ExportFolderID))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Drive client: %w", err)
	}

	var downloader export.Downloader = client
	if c.Google.PruneOldest {
		cleanup := appdistribution.NewCleanupService(client, c.Google.ExportFolderID)
		downloader = appdistribution.NewUploadService(client, cleanup)
	}

	if len(recipients) > 0 {
		svc, err := gmail.NewGoogleGmailService(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gmail client: %w", err)
		}
		sender := gmail.NewClient(from, gmail.WithGmailService(svc))
		downloader = appnotification.NewService(downloader, sender, recipients, c.Email.SenderName)
	}
	return downloader, nil
}

func printOutcome(out io.Writer, outcome *export.Outcome) {
	if outcome == nil {
		return
	}
	switch {
	case outcome.Disposition == export.Cancelled:
		fmt.Fprintln(out, "Export cancelled.")
	case outcome.Err == nil && outcome.Location != "":
		fmt.Fprintf(out, "Saved: %s\n", outcome.Location)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
