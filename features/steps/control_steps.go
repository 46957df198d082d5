//go:build integration

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidflow/cmd"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/filesystem"

	"github.com/cucumber/godog"
)

type controlContext struct {
	tempDir  string
	handler  http.Handler
	stop     context.CancelFunc
	served   chan error
	response *httptest.ResponseRecorder
}

var SharedControlContext = &controlContext{}

func InitializeControlScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedControlContext

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.stop != nil {
			testCtx.stop()
			<-testCtx.served
		}
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		*testCtx = controlContext{}
		return c, nil
	})

	ctx.Step(`^the control API is serving a (\d+) second source "([^"]*)" with preset "([^"]*)"$`, testCtx.theControlAPIIsServing)
	ctx.Step(`^I POST "([^"]*)"$`, testCtx.iPOST)
	ctx.Step(`^I POST "([^"]*)" with body '([^']*)'$`, testCtx.iPOSTWithBody)
	ctx.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	ctx.Step(`^the error message should be "([^"]*)"$`, testCtx.theErrorMessageShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	ctx.Step(`^the graph topology should be "([^"]*)"$`, testCtx.theGraphTopologyShouldBe)
	ctx.Step(`^I wait for the export to start recording$`, testCtx.iWaitForTheExportToStartRecording)
	ctx.Step(`^the export slot should become idle$`, testCtx.theExportSlotShouldBecomeIdle)
	ctx.Step(`^the last export should be "([^"]*)"$`, testCtx.theLastExportShouldBe)
	ctx.Step(`^playback should be paused at ([\d.]+) seconds$`, testCtx.playbackShouldBePausedAt)
}

func (s *controlContext) theControlAPIIsServing(seconds int, name, presetName string) error {
	tempDir, err := os.MkdirTemp("", "control-test-*")
	if err != nil {
		return err
	}
	s.tempDir = tempDir

	c := config.Default()
	c.Paths.OutputDirectory = filepath.Join(tempDir, "exports")
	c.Paths.WorkDirectory = tempDir

	loader := newCountingLoader()
	deps := cmd.ExportDependencies{
		Decoder:        &toneDecoder{duration: time.Duration(seconds) * time.Second},
		Loader:         loader,
		Sources:        staticSources{},
		Downloader:     filesystem.NewDownloader(c.Paths.OutputDirectory),
		Status:         &recordingStatus{},
		Sinks:          wavSink{},
		CaptureDecoder: wavDecoder{},
	}
	input := cmd.ServeInput{
		Source:   filepath.Join(tempDir, name),
		Preset:   presetName,
		Strength: 100,
		Address:  "127.0.0.1:0",
	}

	runCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.served = make(chan error, 1)
	handlers := make(chan http.Handler, 1)
	go func() {
		s.served <- cmd.RunServeWithDependencies(runCtx, c, deps, loader, input, func(h http.Handler) error {
			handlers <- h
			<-runCtx.Done()
			return nil
		})
	}()

	select {
	case s.handler = <-handlers:
		return nil
	case err := <-s.served:
		s.stop = nil
		return fmt.Errorf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		return fmt.Errorf("control API did not start")
	}
}

func (s *controlContext) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *controlContext) iPOST(path string) error {
	s.response = s.do(http.MethodPost, path, "")
	return nil
}

func (s *controlContext) iPOSTWithBody(path, body string) error {
	s.response = s.do(http.MethodPost, path, body)
	return nil
}

func (s *controlContext) body() (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(s.response.Body.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	return body, nil
}

func (s *controlContext) status() (map[string]any, error) {
	rec := s.do(http.MethodGet, "/api/status", "")
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *controlContext) theResponseStatusShouldBe(code int) error {
	if s.response.Code != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, s.response.Code, s.response.Body.String())
	}
	return nil
}

func (s *controlContext) theErrorMessageShouldBe(message string) error {
	body, err := s.body()
	if err != nil {
		return err
	}
	if body["error"] != message {
		return fmt.Errorf("expected error %q, got %v", message, body["error"])
	}
	return nil
}

func (s *controlContext) theResponseFieldShouldBe(field, value string) error {
	body, err := s.body()
	if err != nil {
		return err
	}
	if fmt.Sprint(body[field]) != value {
		return fmt.Errorf("expected %s %q, got %v", field, value, body[field])
	}
	return nil
}

func (s *controlContext) theGraphTopologyShouldBe(topology string) error {
	body, err := s.status()
	if err != nil {
		return err
	}
	got := body["graph"].(map[string]any)["topology"]
	if got != topology {
		return fmt.Errorf("expected topology %q, got %v", topology, got)
	}
	return nil
}

// waitForJob polls the status endpoint until the job reaches want
func (s *controlContext) waitForJob(want string) error {
	deadline := time.Now().Add(10 * time.Second)
	var last any
	for time.Now().Before(deadline) {
		body, err := s.status()
		if err != nil {
			return err
		}
		last = body["job"].(map[string]any)["status"]
		if last == want {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("job never reached %q, last status %v", want, last)
}

func (s *controlContext) iWaitForTheExportToStartRecording() error {
	return s.waitForJob("running")
}

func (s *controlContext) theExportSlotShouldBecomeIdle() error {
	return s.waitForJob("idle")
}

func (s *controlContext) theLastExportShouldBe(disposition string) error {
	body, err := s.status()
	if err != nil {
		return err
	}
	last, ok := body["last_export"].(map[string]any)
	if !ok {
		return fmt.Errorf("no export has settled")
	}
	if last["disposition"] != disposition {
		return fmt.Errorf("expected disposition %q, got %v", disposition, last["disposition"])
	}
	return nil
}

func (s *controlContext) playbackShouldBePausedAt(seconds string) error {
	want, err := parseSeconds(seconds)
	if err != nil {
		return err
	}
	body, err := s.status()
	if err != nil {
		return err
	}
	playback := body["playback"].(map[string]any)
	if playback["paused"] != true {
		return fmt.Errorf("expected playback to be paused")
	}
	got := time.Duration(playback["position"].(float64) * float64(time.Second))
	if diff := got - want; diff > time.Millisecond || diff < -time.Millisecond {
		return fmt.Errorf("expected position %v, got %v", want, got)
	}
	return nil
}
