package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"vidflow/domain/graph"
	"vidflow/infrastructure/oggopus"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/sirupsen/logrus"
	"gopkg.in/hraban/opus.v2"
)

// DefaultBitrate is the Opus bitrate for monitor peers
const DefaultBitrate = 96000

// OutputSource yields the live graph output once the graph is built
type OutputSource func() (graph.Tap, bool)

// sampleWriter is the part of a local track the streamer writes to
type sampleWriter interface {
	WriteSample(s media.Sample) error
}

// WebRTCHandler negotiates peers that listen to the processed output
type WebRTCHandler struct {
	output  OutputSource
	bitrate int
	log     *logrus.Entry

	mu    sync.Mutex
	peers map[*webrtc.PeerConnection]context.CancelFunc
}

// NewWebRTCHandler creates a WebRTC monitor handler
func NewWebRTCHandler(output OutputSource, bitrate int) *WebRTCHandler {
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &WebRTCHandler{
		output:  output,
		bitrate: bitrate,
		log:     logrus.WithField("component", "monitor"),
		peers:   make(map[*webrtc.PeerConnection]context.CancelFunc),
	}
}

// PeerCount returns the number of connected peers
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	tap, ok := h.output()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "press play first to start the audio engine"})
		return
	}
	if !oggopus.SupportedRate(tap.SampleRate()) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: fmt.Sprintf("cannot monitor at %d Hz", tap.SampleRate())})
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: uint32(tap.SampleRate()), Channels: uint16(tap.Channels())},
		"audio",
		"vidflow-monitor",
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}
	<-webrtc.GatheringCompletePromise(pc)

	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.peers[pc] = cancel
	h.mu.Unlock()
	h.log.WithField("peers", h.PeerCount()).Info("monitor peer connected")

	go func() {
		if err := streamTap(ctx, tap, track, h.bitrate); err != nil {
			h.log.WithError(err).Warn("monitor stream stopped")
		}
	}()

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			h.removePeer(pc)
			pc.Close()
			h.log.WithField("peers", h.PeerCount()).Info("monitor peer disconnected")
		}
	})

	writeJSON(w, http.StatusOK, pc.LocalDescription())
}

func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.peers[pc]; ok {
		cancel()
		delete(h.peers, pc)
	}
}

// Close disconnects every peer
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := make([]*webrtc.PeerConnection, 0, len(h.peers))
	for pc, cancel := range h.peers {
		cancel()
		peers = append(peers, pc)
	}
	h.peers = make(map[*webrtc.PeerConnection]context.CancelFunc)
	h.mu.Unlock()

	for _, pc := range peers {
		pc.Close()
	}
}

// streamTap encodes tap blocks to Opus and writes them to out until ctx ends
// or the tap closes.
func streamTap(ctx context.Context, tap graph.Tap, out sampleWriter, bitrate int) error {
	rate, channels := tap.SampleRate(), tap.Channels()
	if channels > 2 {
		channels = 2
	}
	enc, err := opus.NewEncoder(rate, channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("opus bitrate: %w", err)
	}

	blocks, unsubscribe := tap.Subscribe()
	defer unsubscribe()

	framer := oggopus.NewFramer(channels, oggopus.FrameSize(rate))
	packet := make([]byte, 4000)
	emit := func(frame []float32) error {
		n, err := enc.EncodeFloat32(frame, packet)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		return out.WriteSample(media.Sample{
			Data:     append([]byte(nil), packet[:n]...),
			Duration: oggopus.FrameDuration,
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-blocks:
			if !ok {
				return nil
			}
			if err := framer.Push(block, emit); err != nil {
				return err
			}
		}
	}
}
