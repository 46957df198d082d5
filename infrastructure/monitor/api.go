package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vidflow/domain/export"
	"vidflow/domain/failure"
	"vidflow/domain/graph"
	"vidflow/domain/media"
	"vidflow/domain/preset"

	"github.com/sirupsen/logrus"
)

// Graph is the signal graph surface exposed over HTTP
type Graph interface {
	EnsureReady(ctx context.Context) error
	SetPreset(id preset.ID)
	SetStrength(percent float64)
	SetActivePath(target graph.Path)
	State() graph.State
	Preset() preset.ID
	Strength() float64
	Parameters() preset.FilterParameterSet
}

// Exporter starts and cancels background exports
type Exporter interface {
	Start(ctx context.Context, kind export.Kind, origin media.Origin) (export.Job, error)
	Cancel() bool
	Current() export.Job
	LastOutcome() (export.Outcome, bool)
}

// HealthChecker reports the transcoding engine version
type HealthChecker interface {
	Version(ctx context.Context) (string, error)
}

// Server is the local control API for one loaded media source
type Server struct {
	graph    Graph
	player   media.Element
	exporter Exporter
	health   HealthChecker
	origin   media.Origin
	monitor  http.Handler
	log      *logrus.Entry
}

// NewServer creates the control API. monitor may be nil to disable WebRTC.
func NewServer(g Graph, player media.Element, exporter Exporter, health HealthChecker, origin media.Origin, monitor http.Handler) *Server {
	return &Server{
		graph:    g,
		player:   player,
		exporter: exporter,
		health:   health,
		origin:   origin,
		monitor:  monitor,
		log:      logrus.WithField("component", "monitor"),
	}
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/play", s.handlePlay)
	mux.HandleFunc("POST /api/pause", s.handlePause)
	mux.HandleFunc("POST /api/seek", s.handleSeek)
	mux.HandleFunc("POST /api/preset", s.handlePreset)
	mux.HandleFunc("POST /api/path", s.handlePath)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("POST /api/export/cancel", s.handleCancel)
	if s.monitor != nil {
		mux.Handle("POST /api/monitor/offer", s.monitor)
	}
	return mux
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the export taxonomy onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, failure.ErrExportBusy):
		status = http.StatusConflict
	case errors.Is(err, failure.ErrNoActivePreset), errors.Is(err, failure.ErrSourceNotReencodable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, failure.ErrEngineUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorBody{Error: failure.Message(err)})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	version, err := s.health.Version(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"ffmpeg": false,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"ffmpeg":  true,
		"version": version,
	})
}

type jobView struct {
	ID              string  `json:"id,omitempty"`
	Kind            string  `json:"kind,omitempty"`
	Preset          string  `json:"preset,omitempty"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	CancelRequested bool    `json:"cancel_requested"`
}

func viewJob(j export.Job) jobView {
	v := jobView{Status: j.Status.String(), Progress: j.Progress, CancelRequested: j.CancelRequested}
	if j.Status != export.Idle {
		v.ID = j.ID
		v.Kind = j.Kind.String()
		v.Preset = j.Preset.Key()
	}
	return v
}

type outcomeView struct {
	Job         jobView `json:"job"`
	Disposition string  `json:"disposition"`
	Filename    string  `json:"filename,omitempty"`
	Location    string  `json:"location,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.graph.State()
	body := map[string]any{
		"graph": map[string]any{
			"topology":  state.Topology.String(),
			"path":      state.ActivePath.String(),
			"crossfade": state.CrossfadeInFlight,
		},
		"preset":     s.graph.Preset().Key(),
		"strength":   s.graph.Strength(),
		"parameters": s.graph.Parameters(),
		"playback": map[string]any{
			"position": s.player.CurrentTime().Seconds(),
			"duration": s.player.Duration().Seconds(),
			"paused":   s.player.Paused(),
		},
		"source": s.origin.Filename(),
		"job":    viewJob(s.exporter.Current()),
	}
	if last, ok := s.exporter.LastOutcome(); ok {
		ov := outcomeView{
			Job:         viewJob(last.Job),
			Disposition: last.Disposition.String(),
			Location:    last.Location,
		}
		if last.Artifact != nil {
			ov.Filename = last.Artifact.Filename
		}
		if last.Err != nil {
			ov.Error = failure.Message(last.Err)
		}
		body["last_export"] = ov
	}
	writeJSON(w, http.StatusOK, body)
}

// handlePlay is the user gesture that builds the graph
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.graph.EnsureReady(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.player.Play(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.player.Pause()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.Seconds < 0 {
		req.Seconds = 0
	}
	s.player.Seek(time.Duration(req.Seconds * float64(time.Second)))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "position": s.player.CurrentTime().Seconds()})
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset   *string  `json:"preset"`
		Strength *float64 `json:"strength"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.Strength != nil {
		s.graph.SetStrength(*req.Strength)
	}
	if req.Preset != nil {
		id, err := preset.Parse(*req.Preset)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		s.graph.SetPreset(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"preset":     s.graph.Preset().Key(),
		"strength":   s.graph.Strength(),
		"parameters": s.graph.Parameters(),
	})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var target graph.Path
	switch req.Path {
	case "bypass":
		target = graph.Bypass
	case "processed":
		target = graph.Processed
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: `path must be "bypass" or "processed"`})
		return
	}
	s.graph.SetActivePath(target)
	writeJSON(w, http.StatusOK, map[string]any{"path": s.graph.State().ActivePath.String()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var kind export.Kind
	switch req.Kind {
	case "audio", "":
		kind = export.AudioOnly
	case "video":
		kind = export.FullVideo
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: `kind must be "audio" or "video"`})
		return
	}

	job, err := s.exporter.Start(r.Context(), kind, s.origin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewJob(job))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": s.exporter.Cancel()})
}
