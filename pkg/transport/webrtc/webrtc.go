// Package webrtc implements the media-negotiation binding. Control
// messages travel over the "oai-events" data channel while audio flows
// on dedicated media tracks: capture frames are written to a local
// track, assistant audio arrives as RTP on the remote track and is
// surfaced through Handler.OnAudioFrame.
package webrtc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/voiceline-ai/voiceline/pkg/session"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/realtime"
	dataChannelName = "oai-events"
	frameDuration   = 20 * time.Millisecond
)

// Config parameterizes the WebRTC binding.
type Config struct {
	// Endpoint is the HTTP URL receiving the SDP offer. Empty means the
	// default endpoint.
	Endpoint string

	APIKey string

	// Model is appended as a query parameter to the offer request.
	Model string

	// HTTPClient performs the offer exchange. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	Logger session.Logger
}

// Transport is the WebRTC binding of session.Transport.
type Transport struct {
	config Config
	logger session.Logger
	client *http.Client

	mu         sync.Mutex
	pc         *webrtc.PeerConnection
	dc         *webrtc.DataChannel
	localTrack *webrtc.TrackLocalStaticSample
	opened     bool
	closed     bool
}

// New creates an unopened WebRTC transport.
func New(config Config) *Transport {
	logger := config.Logger
	if logger == nil {
		logger = &session.NoOpLogger{}
	}
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{config: config, logger: logger, client: client}
}

// Open runs the full negotiation: offer creation, ICE gathering, SDP
// exchange over HTTP and answer application. OnReady fires only once
// the data channel opens, which is strictly after the exchange has
// completed, so control messages sent from OnReady are never lost.
func (t *Transport) Open(ctx context.Context, h session.Handler) error {
	t.mu.Lock()
	if t.opened {
		t.mu.Unlock()
		return session.ErrAlreadyOpen
	}
	t.opened = true
	t.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("failed to add audio transceiver: %w", err)
	}

	localTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "microphone",
	)
	if err != nil {
		pc.Close()
		return fmt.Errorf("failed to create local track: %w", err)
	}
	if _, err := pc.AddTrack(localTrack); err != nil {
		pc.Close()
		return fmt.Errorf("failed to add local track: %w", err)
	}

	dc, err := pc.CreateDataChannel(dataChannelName, nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("failed to create data channel: %w", err)
	}

	dc.OnOpen(func() {
		t.logger.Debug("data channel opened")
		h.OnReady()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		h.OnControlMessage(msg.Data)
	})
	dc.OnClose(func() {
		if t.isClosed() {
			return
		}
		t.logger.Warn("data channel closed unexpectedly")
		h.OnClosed("data channel closed", true)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		t.logger.Debug("remote audio track", "codec", track.Codec().MimeType)
		go t.readRemoteTrack(track, h)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		t.logger.Debug("peer connection state", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed && !t.isClosed() {
			h.OnClosed("peer connection failed", true)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	endpoint := t.config.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	answer, err := exchangeSDP(ctx, t.client, endpoint, t.config.APIKey, t.config.Model, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		pc.Close()
		return nil
	}
	t.pc = pc
	t.dc = dc
	t.localTrack = localTrack
	t.mu.Unlock()
	return nil
}

// SendControl writes one control message to the data channel. Before
// the channel opens the message is dropped.
func (t *Transport) SendControl(msg []byte) error {
	t.mu.Lock()
	dc := t.dc
	closed := t.closed
	t.mu.Unlock()

	if dc == nil || closed || dc.ReadyState() != webrtc.DataChannelStateOpen {
		t.logger.Debug("dropping control message, data channel not open")
		return nil
	}
	return dc.SendText(string(msg))
}

// SendAudio writes one capture frame to the local media track.
func (t *Transport) SendAudio(frame []byte) error {
	t.mu.Lock()
	track := t.localTrack
	closed := t.closed
	t.mu.Unlock()

	if track == nil || closed {
		return nil
	}
	return track.WriteSample(media.Sample{Data: frame, Duration: frameDuration})
}

// Close tears the peer connection down. Safe to call at any point, any
// number of times.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pc := t.pc
	t.mu.Unlock()

	if pc != nil {
		return pc.Close()
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// readRemoteTrack pumps assistant audio off the remote track until the
// track or the connection goes away.
func (t *Transport) readRemoteTrack(track *webrtc.TrackRemote, h session.Handler) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			t.logger.Debug("remote track read ended", "error", err)
			return
		}
		if payload := rtpPayload(pkt); len(payload) > 0 {
			h.OnAudioFrame(payload)
		}
	}
}

func rtpPayload(pkt *rtp.Packet) []byte {
	if pkt == nil {
		return nil
	}
	return pkt.Payload
}
