//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidflow/cmd"
	"vidflow/domain/export"
	"vidflow/domain/failure"
	"vidflow/domain/wav"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/filesystem"

	"github.com/cucumber/godog"
)

type exportContext struct {
	tempDir   string
	outputDir string
	source    string
	preset    string
	strength  float64
	decoder   *toneDecoder
	loader    *countingLoader
	status    *recordingStatus
	outcome   *export.Outcome
	err       error
}

var SharedExportContext = &exportContext{}

var sentinels = map[string]error{
	"EngineUnavailable":    failure.ErrEngineUnavailable,
	"NoActivePreset":       failure.ErrNoActivePreset,
	"ExportBusy":           failure.ErrExportBusy,
	"SourceNotReencodable": failure.ErrSourceNotReencodable,
	"DecodeFailure":        failure.ErrDecodeFailure,
	"EngineLoadFailure":    failure.ErrEngineLoadFailure,
	"TranscodeFailure":     failure.ErrTranscodeFailure,
	"CaptureFailure":       failure.ErrCaptureFailure,
}

func InitializeExportScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedExportContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "export-test-*")
		if err != nil {
			return c, err
		}
		*testCtx = exportContext{
			tempDir:   tempDir,
			outputDir: filepath.Join(tempDir, "exports"),
			decoder:   &toneDecoder{duration: time.Minute},
			loader:    newCountingLoader(),
			status:    &recordingStatus{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a (\d+) second local source "([^"]*)"$`, testCtx.aLocalSource)
	ctx.Step(`^a remote source "([^"]*)"$`, testCtx.aRemoteSource)
	ctx.Step(`^the preset "([^"]*)" at strength (\d+)$`, testCtx.thePresetAtStrength)
	ctx.Step(`^I export (audio|video)$`, testCtx.iExport)
	ctx.Step(`^the export should settle as "([^"]*)"$`, testCtx.theExportShouldSettleAs)
	ctx.Step(`^the export should fail with "([^"]*)"$`, testCtx.theExportShouldFailWith)
	ctx.Step(`^the delivered file should be "([^"]*)"$`, testCtx.theDeliveredFileShouldBe)
	ctx.Step(`^the WAV data length should be (\d+) bytes$`, testCtx.theWAVDataLengthShouldBe)
	ctx.Step(`^the reported progress should never decrease and finish at 100$`, testCtx.theProgressShouldBeMonotonic)
	ctx.Step(`^no file should be delivered$`, testCtx.noFileShouldBeDelivered)
	ctx.Step(`^the transcoding engine should not have been loaded$`, testCtx.theEngineShouldNotHaveBeenLoaded)
	ctx.Step(`^the transcoder should have received an audio filter$`, testCtx.theTranscoderShouldHaveReceivedAFilter)
	ctx.Step(`^the transcoder working files should be removed$`, testCtx.theWorkingFilesShouldBeRemoved)
	ctx.Step(`^the command should report a validation error mentioning "([^"]*)"$`, testCtx.aValidationErrorMentioning)
	ctx.Step(`^the source should not have been decoded$`, testCtx.theSourceShouldNotHaveBeenDecoded)
}

func (e *exportContext) aLocalSource(seconds int, name string) error {
	e.decoder.duration = time.Duration(seconds) * time.Second
	e.source = filepath.Join(e.tempDir, name)
	return nil
}

func (e *exportContext) aRemoteSource(url string) error {
	e.source = url
	return nil
}

func (e *exportContext) thePresetAtStrength(name string, strength int) error {
	e.preset = name
	e.strength = float64(strength)
	return nil
}

func (e *exportContext) iExport(kind string) error {
	c := config.Default()
	c.Paths.OutputDirectory = e.outputDir
	c.Paths.WorkDirectory = e.tempDir
	c.Playback.Speed = 1000

	input := cmd.ExportInput{
		Kind:     export.AudioOnly,
		Source:   e.source,
		Preset:   e.preset,
		Strength: e.strength,
	}
	if kind == "video" {
		input.Kind = export.FullVideo
	}
	deps := cmd.ExportDependencies{
		Decoder:        e.decoder,
		Loader:         e.loader,
		Sources:        staticSources{},
		Downloader:     filesystem.NewDownloader(e.outputDir),
		Status:         e.status,
		Sinks:          wavSink{},
		CaptureDecoder: wavDecoder{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	e.outcome, e.err = cmd.RunExportWithDependencies(ctx, c, deps, input)
	return nil
}

func (e *exportContext) theExportShouldSettleAs(disposition string) error {
	if e.err != nil {
		return fmt.Errorf("export failed: %w", e.err)
	}
	if e.outcome == nil {
		return fmt.Errorf("export returned no outcome")
	}
	if got := e.outcome.Disposition.String(); got != disposition {
		return fmt.Errorf("expected disposition %q, got %q", disposition, got)
	}
	return nil
}

func (e *exportContext) theExportShouldFailWith(kind string) error {
	sentinel, ok := sentinels[kind]
	if !ok {
		return fmt.Errorf("unknown failure kind %q", kind)
	}
	if !errors.Is(e.err, sentinel) {
		return fmt.Errorf("expected %s, got %v", kind, e.err)
	}
	if e.err.Error() != failure.Message(sentinel) {
		return fmt.Errorf("expected message %q, got %q", failure.Message(sentinel), e.err.Error())
	}
	return nil
}

func (e *exportContext) theDeliveredFileShouldBe(name string) error {
	want := filepath.Join(e.outputDir, name)
	if e.outcome.Location != want {
		return fmt.Errorf("expected location %q, got %q", want, e.outcome.Location)
	}
	if _, err := os.Stat(want); err != nil {
		return fmt.Errorf("delivered file missing: %w", err)
	}
	return nil
}

func (e *exportContext) theWAVDataLengthShouldBe(expected int) error {
	data, err := os.ReadFile(e.outcome.Location)
	if err != nil {
		return err
	}
	d, err := wav.ReadDescriptor(data)
	if err != nil {
		return err
	}
	if int(d.DataLength) != expected {
		return fmt.Errorf("expected data length %d, got %d", expected, d.DataLength)
	}
	if len(data) != wav.HeaderSize+expected {
		return fmt.Errorf("expected file size %d, got %d", wav.HeaderSize+expected, len(data))
	}
	return nil
}

func (e *exportContext) theProgressShouldBeMonotonic() error {
	values := e.status.Values()
	if len(values) == 0 {
		return fmt.Errorf("no progress was reported")
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return fmt.Errorf("progress went from %v to %v", values[i-1], values[i])
		}
	}
	if last := values[len(values)-1]; last != 100 {
		return fmt.Errorf("expected final progress 100, got %v", last)
	}
	return nil
}

func (e *exportContext) noFileShouldBeDelivered() error {
	entries, err := os.ReadDir(e.outputDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("expected no delivered files, found %s", entries[0].Name())
	}
	return nil
}

func (e *exportContext) theEngineShouldNotHaveBeenLoaded() error {
	if n := e.loader.Loads(); n != 0 {
		return fmt.Errorf("expected no engine loads, got %d", n)
	}
	return nil
}

func (e *exportContext) theTranscoderShouldHaveReceivedAFilter() error {
	e.loader.engine.mu.Lock()
	defer e.loader.engine.mu.Unlock()
	if len(e.loader.engine.args) != 1 {
		return fmt.Errorf("expected one transcode, got %d", len(e.loader.engine.args))
	}
	args := e.loader.engine.args[0]
	for i, a := range args {
		if a == "-af" && i+1 < len(args) && strings.Contains(args[i+1], "acompressor") {
			return nil
		}
	}
	return fmt.Errorf("no -af filter in %v", args)
}

func (e *exportContext) theWorkingFilesShouldBeRemoved() error {
	if n := e.loader.engine.Files(); n != 0 {
		return fmt.Errorf("expected empty working storage, %d files remain", n)
	}
	return nil
}

func (e *exportContext) aValidationErrorMentioning(text string) error {
	var ve *cmd.ValidationError
	if !errors.As(e.err, &ve) {
		return fmt.Errorf("expected a validation error, got %v", e.err)
	}
	if !strings.Contains(ve.Message, text) {
		return fmt.Errorf("expected %q in %q", text, ve.Message)
	}
	return nil
}

func (e *exportContext) theSourceShouldNotHaveBeenDecoded() error {
	if n := e.decoder.Calls(); n != 0 {
		return fmt.Errorf("expected no decodes, got %d", n)
	}
	return nil
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}
