package session

import "github.com/voiceline-ai/voiceline/pkg/audio"

type Logger interface {
	Debug(msg string, args ...interface{})

	Info(msg string, args ...interface{})

	Warn(msg string, args ...interface{})

	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// State is the lifecycle state of a realtime session.
type State string

const (
	StateIdle                State = "IDLE"
	StateNegotiating         State = "NEGOTIATING"
	StateConnected           State = "CONNECTED"
	StateUserSpeaking        State = "USER_SPEAKING"
	StateAssistantResponding State = "ASSISTANT_RESPONDING"
	StateEnded               State = "ENDED"
	StateFailed              State = "FAILED"
)

// EventKind identifies a session event delivered to the consumer.
type EventKind string

const (
	SessionStarted    EventKind = "SESSION_STARTED"
	SpeechStarted     EventKind = "SPEECH_STARTED"
	SpeechStopped     EventKind = "SPEECH_STOPPED"
	ResponseStarted   EventKind = "RESPONSE_STARTED"
	ResponseCompleted EventKind = "RESPONSE_COMPLETED"
	Transcript        EventKind = "TRANSCRIPT"
	SessionError      EventKind = "SESSION_ERROR"
	SessionEnded      EventKind = "SESSION_ENDED"
)

// Event is a session state notification. Message carries the error text
// for SessionError and incremental text for Transcript; it is empty
// otherwise.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

// TurnDetection configures server-side voice activity detection. The
// struct marshals to the turn_detection object of a session.update.
type TurnDetection struct {
	Type              string  `json:"type,omitempty"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    *bool   `json:"create_response,omitempty"`
	InterruptResponse *bool   `json:"interrupt_response,omitempty"`
	Eagerness         string  `json:"eagerness,omitempty"`
}

// Turn detection modes.
const (
	VADServer   = "server_vad"
	VADSemantic = "semantic_vad"
)

type Config struct {
	Model string

	// Voice is passed through to the remote endpoint verbatim.
	Voice string

	// Instructions is the persona/system prompt. The session never
	// interprets its contents.
	Instructions string

	Modalities []string

	InputAudioFormat  string
	OutputAudioFormat string

	TurnDetection *TurnDetection

	// CapturePolicy decides how microphone frames are forwarded while
	// the assistant is speaking. PolicyAlways keeps server-side VAD
	// working for barge-in; PolicyGated substitutes silence to avoid
	// feedback on devices without echo cancellation.
	CapturePolicy audio.Policy

	// GateThreshold is the max-amplitude floor below which PolicyGated
	// substitutes silence.
	GateThreshold int

	CaptureSampleRate  int
	PlaybackSampleRate int
}

func DefaultConfig() Config {
	yes := true
	return Config{
		Model:             "gpt-4o-realtime-preview",
		Voice:             "ballad",
		Modalities:        []string{"audio", "text"},
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection: &TurnDetection{
			Type:              VADSemantic,
			Eagerness:         "medium",
			CreateResponse:    &yes,
			InterruptResponse: &yes,
		},
		CapturePolicy:      audio.PolicyAlways,
		GateThreshold:      1000,
		CaptureSampleRate:  16000,
		PlaybackSampleRate: 24000,
	}
}

// Bridge is the audio surface the session drives. *audio.Bridge
// satisfies it; tests substitute mocks.
type Bridge interface {
	StartCapture(sink func(frame []byte)) error
	StopCapture()
	Play(frame []byte)
	ClearPlayback()
	SetAssistantSpeaking(speaking bool)
	Close()
}
