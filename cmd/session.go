package cmd

import (
	"context"
	"fmt"

	appcapture "vidflow/application/capture"
	appexport "vidflow/application/export"
	appgraph "vidflow/application/graph"
	"vidflow/domain/media"
	"vidflow/domain/preset"
	"vidflow/infrastructure/config"
	"vidflow/infrastructure/engine"
	"vidflow/infrastructure/oggopus"
	"vidflow/infrastructure/player"
)

// session is one source wired through the player, the processing graph and
// the export service.
type session struct {
	origin  media.Origin
	player  *player.Player
	graph   *appgraph.Manager
	engines *appexport.EngineCache
	exports *appexport.Service

	stopPlayer context.CancelFunc
}

func newSession(c *config.Config, deps ExportDependencies, origin media.Origin, id preset.ID, strength float64) *session {
	sinks := deps.Sinks
	if sinks == nil {
		sinks = oggopus.NewRecorder(oggopus.WithBitrate(c.Audio.CaptureBitrate))
	}
	captureDecoder := deps.CaptureDecoder
	if captureDecoder == nil {
		captureDecoder = oggopus.NewDecoder()
	}

	p := player.New(player.WithSpeed(c.Playback.Speed))
	factory := &engine.Factory{SampleRate: c.Audio.SampleRate, Channels: c.Audio.Channels, Source: p}
	manager := appgraph.NewManager(factory, deps.Status,
		appgraph.WithCrossfade(c.Audio.Crossfade()),
		appgraph.WithStrength(strength),
	)
	manager.SetPreset(id)

	recorder := appcapture.NewRecorder(manager, p, sinks)
	engines := appexport.NewEngineCache(deps.Loader)
	exports := appexport.NewService(manager, recorder, captureDecoder, engines, deps.Sources, deps.Downloader, deps.Status,
		appexport.WithAudioBitrate(c.Export.AudioBitrate),
	)

	return &session{
		origin:  origin,
		player:  p,
		graph:   manager,
		engines: engines,
		exports: exports,
	}
}

// load decodes the source into the player and starts the playback clock.
// The clock runs until Close, independent of ctx.
func (s *session) load(ctx context.Context, c *config.Config, decoder SourceDecoder) error {
	buf, err := decoder.Decode(ctx, s.origin.Location, c.Audio.SampleRate, c.Audio.Channels)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.origin.Filename(), err)
	}
	if err := s.player.Load(buf); err != nil {
		return fmt.Errorf("load %s: %w", s.origin.Filename(), err)
	}

	playCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	s.stopPlayer = stop
	go s.player.Run(playCtx)
	return nil
}

func (s *session) Close() {
	if s.stopPlayer != nil {
		s.stopPlayer()
	}
	s.engines.Close()
	s.graph.Close()
}
