package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/voiceline-ai/voiceline/pkg/audio"
)

// Session is one realtime conversation. It owns the turn-taking state
// machine: transport callbacks and API calls feed it, and it drives the
// transport, the audio bridge and the consumer event channel. All state
// is mutated here and nowhere else.
type Session struct {
	id        string
	transport Transport
	bridge    Bridge
	router    audio.Router
	config    Config
	logger    Logger

	mu             sync.Mutex
	state          State
	responseActive bool
	listening      bool
	ended          bool

	events       chan Event
	emitMu       sync.Mutex
	eventsClosed bool
	closeOnce    sync.Once
}

// New creates a session over the given transport and audio bridge.
func New(transport Transport, bridge Bridge, config Config) *Session {
	return NewWithLogger(transport, bridge, nil, config, &NoOpLogger{})
}

// NewWithRouter creates a session that also controls audio routing:
// speaker mode is enabled when the session connects and restored on
// disconnect.
func NewWithRouter(transport Transport, bridge Bridge, router audio.Router, config Config) *Session {
	return NewWithLogger(transport, bridge, router, config, &NoOpLogger{})
}

// NewWithLogger creates a session with a custom logger.
// If logger is nil, a no-op logger is used.
func NewWithLogger(transport Transport, bridge Bridge, router audio.Router, config Config, logger Logger) *Session {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Session{
		transport: transport,
		bridge:    bridge,
		router:    router,
		config:    config,
		logger:    logger,
		state:     StateIdle,
		events:    make(chan Event, 64),
	}
}

// ID returns the opaque session identifier assigned at connect time.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the channel of session notifications. It is closed
// after SessionEnded has been delivered.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Connect opens the transport and performs the binding's handshake. On
// failure the session moves to StateFailed and exactly one SessionError
// event carries the reason; SessionStarted is never emitted.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateNegotiating
	s.id = "sess_" + uuid.New().String()[:12]
	s.mu.Unlock()

	s.logger.Info("connecting", "sessionID", s.ID())

	if err := s.transport.Open(ctx, &handler{s}); err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		s.emit(SessionError, err.Error())
		return fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
	}
	return nil
}

// StartListening starts the capture pump; microphone frames flow to the
// transport subject to the configured capture policy.
func (s *Session) StartListening() error {
	s.mu.Lock()
	if s.ended || s.state == StateIdle || s.state == StateNegotiating || s.state == StateFailed {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	s.mu.Unlock()

	if err := s.bridge.StartCapture(s.forwardFrame); err != nil {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// StopListening stops the capture pump. The session stays connected.
func (s *Session) StopListening() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.listening = false
	s.mu.Unlock()
	s.bridge.StopCapture()
}

// SendText injects a user text message and asks the endpoint to respond
// to it.
func (s *Session) SendText(text string) error {
	if !s.connected() {
		return ErrNotConnected
	}

	item, err := MarshalItemCreate(text)
	if err != nil {
		return err
	}
	if err := s.transport.SendControl(item); err != nil {
		return err
	}
	return s.transport.SendControl(MarshalResponseCreate())
}

// CommitInput finalizes the pending input audio buffer. Only needed
// when server-side turn detection is disabled, for push-to-talk flows.
func (s *Session) CommitInput() error {
	if !s.connected() {
		return ErrNotConnected
	}
	return s.transport.SendControl(MarshalInputCommit())
}

// ClearInput discards the pending input audio buffer.
func (s *Session) ClearInput() error {
	if !s.connected() {
		return ErrNotConnected
	}
	return s.transport.SendControl(MarshalInputClear())
}

func (s *Session) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	switch s.state {
	case StateConnected, StateUserSpeaking, StateAssistantResponding:
		return true
	}
	return false
}

// CancelResponse cancels the in-flight assistant response. When no
// response is active it is a no-op, not an error.
func (s *Session) CancelResponse() error {
	s.mu.Lock()
	active := s.responseActive
	s.responseActive = false
	s.mu.Unlock()
	if !active {
		return nil
	}
	return s.transport.SendControl(MarshalResponseCancel())
}

// Disconnect ends the session and releases everything. It is idempotent:
// a second call has no observable effect, and SessionEnded is emitted
// exactly once. Cleanup runs in a fixed order (stop capture, close
// transport, release audio, restore routing) and every step is
// best-effort: one failing step never prevents the rest.
func (s *Session) Disconnect() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.ended = true
		s.listening = false
		s.state = StateEnded
		s.mu.Unlock()

		s.bridge.StopCapture()
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("transport close failed", "error", err)
		}
		s.bridge.Close()
		if s.router != nil {
			if err := s.router.Restore(); err != nil {
				s.logger.Warn("audio routing restore failed", "error", err)
			}
		}

		s.logger.Info("session ended", "sessionID", s.id)
		s.emit(SessionEnded, "")
		s.closeEvents()
	})
}

// forwardFrame is the capture sink: the bridge hands it policy-applied
// frames which go straight to the transport.
func (s *Session) forwardFrame(frame []byte) {
	if err := s.transport.SendAudio(frame); err != nil {
		s.logger.Debug("audio frame dropped", "error", err)
	}
}

// handleReady runs when the transport handshake completes.
func (s *Session) handleReady() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()

	if s.router != nil {
		if err := s.router.EnableSpeaker(); err != nil {
			s.logger.Warn("speaker routing failed", "error", err)
		}
	}

	update, err := MarshalSessionUpdate(s.config)
	if err != nil {
		s.logger.Error("session update marshal failed", "error", err)
	} else if err := s.transport.SendControl(update); err != nil {
		s.logger.Warn("session update send failed", "error", err)
	}

	s.logger.Info("session started", "sessionID", s.ID())
	s.emit(SessionStarted, "")
}

// handleControl processes one inbound control message. The transport
// delivers messages in wire order on a single goroutine, so turn state
// never sees reordered or concurrent events.
func (s *Session) handleControl(raw []byte) {
	ev, ok := parseControlEvent(raw)
	if !ok {
		s.logger.Debug("dropping malformed control message")
		return
	}

	switch ev.Kind {
	case ControlSpeechStarted:
		s.onSpeechStarted()
	case ControlSpeechStopped:
		s.onSpeechStopped()
	case ControlResponseCreated:
		s.onResponseCreated()
	case ControlResponseDone:
		s.onResponseDone()
	case ControlAudioDelta:
		s.bridge.Play(ev.Audio)
	case ControlAudioDone:
		s.logger.Debug("assistant audio complete")
	case ControlTextDelta:
		s.emit(Transcript, ev.Text)
	case ControlError:
		s.onErrorEvent(ev)
	case ControlUnrecognized:
		s.logger.Debug("ignoring control event", "type", ev.RawType)
	}
}

func (s *Session) onSpeechStarted() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	interrupted := s.responseActive
	s.responseActive = false
	s.state = StateUserSpeaking
	s.mu.Unlock()

	if interrupted {
		// Barge-in: stale assistant audio must stop before anything
		// else, then the in-flight response is cancelled. A cancel that
		// loses the race with response.done comes back as a benign
		// error and is absorbed in onErrorEvent.
		s.bridge.ClearPlayback()
		s.bridge.SetAssistantSpeaking(false)
		if err := s.transport.SendControl(MarshalResponseCancel()); err != nil {
			s.logger.Warn("response cancel send failed", "error", err)
		}
		s.logger.Info("assistant response interrupted", "sessionID", s.id)
	}

	s.emit(SpeechStarted, "")
}

func (s *Session) onSpeechStopped() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	if s.state == StateUserSpeaking {
		s.state = StateConnected
	}
	s.mu.Unlock()
	s.emit(SpeechStopped, "")
}

func (s *Session) onResponseCreated() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.responseActive = true
	s.state = StateAssistantResponding
	s.mu.Unlock()

	s.bridge.SetAssistantSpeaking(true)
	s.emit(ResponseStarted, "")
}

func (s *Session) onResponseDone() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.responseActive = false
	if s.state == StateAssistantResponding {
		s.state = StateConnected
	}
	s.mu.Unlock()

	s.bridge.SetAssistantSpeaking(false)
	s.emit(ResponseCompleted, "")
}

func (s *Session) onErrorEvent(ev ControlEvent) {
	if isBenignCancel(ev.Code, ev.Message) {
		s.logger.Debug("absorbing benign cancellation error", "code", ev.Code, "message", ev.Message)
		return
	}
	message := ev.Message
	if message == "" {
		message = ev.Code
	}
	s.logger.Error("endpoint error", "sessionID", s.id, "code", ev.Code, "message", ev.Message)
	// Reported, not terminal: the caller decides whether to end the
	// session.
	s.emit(SessionError, message)
}

// handleClosed reacts to the transport going away. A fatal close forces
// the session to end; a local close is already handled by Disconnect.
func (s *Session) handleClosed(reason string, fatal bool) {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended || !fatal {
		return
	}
	s.emit(SessionError, reason)
	s.Disconnect()
}

func (s *Session) emit(kind EventKind, message string) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.eventsClosed {
		return
	}
	select {
	case s.events <- Event{Kind: kind, Message: message}:
	default:
		s.logger.Warn("dropping session event", "kind", kind)
	}
}

func (s *Session) closeEvents() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if !s.eventsClosed {
		s.eventsClosed = true
		close(s.events)
	}
}

// isBenignCancel reports whether an error event is the expected
// cancel-after-completion race rather than a real failure.
func isBenignCancel(code, message string) bool {
	if code == "response_not_found" {
		return true
	}
	return strings.Contains(strings.ToLower(code), "cancel") ||
		strings.Contains(strings.ToLower(message), "cancel")
}

// handler adapts transport callbacks onto the session without exposing
// them on the public API.
type handler struct {
	s *Session
}

func (h *handler) OnReady()                      { h.s.handleReady() }
func (h *handler) OnControlMessage(msg []byte)   { h.s.handleControl(msg) }
func (h *handler) OnAudioFrame(frame []byte)     { h.s.bridge.Play(frame) }
func (h *handler) OnClosed(r string, fatal bool) { h.s.handleClosed(r, fatal) }
