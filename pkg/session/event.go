package session

import (
	"encoding/base64"
	"encoding/json"
)

// Wire event types understood by the router. Anything else is ignored.
const (
	typeSessionUpdate      = "session.update"
	typeInputAudioAppend   = "input_audio_buffer.append"
	typeInputAudioCommit   = "input_audio_buffer.commit"
	typeInputAudioClear    = "input_audio_buffer.clear"
	typeItemCreate         = "conversation.item.create"
	typeResponseCreate     = "response.create"
	typeResponseCancel     = "response.cancel"
	typeSpeechStarted      = "input_audio_buffer.speech_started"
	typeSpeechStopped      = "input_audio_buffer.speech_stopped"
	typeResponseCreated    = "response.created"
	typeResponseDone       = "response.done"
	typeAudioDelta         = "response.audio.delta"
	typeAudioDone          = "response.audio.done"
	typeTextDelta          = "response.text.delta"
	typeTranscriptDelta    = "response.audio_transcript.delta"
	typeCancelFailed       = "response.cancel_failed"
	typeError              = "error"
)

// ControlKind tags a parsed inbound control event.
type ControlKind string

const (
	ControlSpeechStarted   ControlKind = "SPEECH_STARTED"
	ControlSpeechStopped   ControlKind = "SPEECH_STOPPED"
	ControlResponseCreated ControlKind = "RESPONSE_CREATED"
	ControlResponseDone    ControlKind = "RESPONSE_DONE"
	ControlAudioDelta      ControlKind = "AUDIO_DELTA"
	ControlAudioDone       ControlKind = "AUDIO_DONE"
	ControlTextDelta       ControlKind = "TEXT_DELTA"
	ControlError           ControlKind = "ERROR"
	ControlUnrecognized    ControlKind = "UNRECOGNIZED"
)

// ControlEvent is one parsed inbound control message.
type ControlEvent struct {
	Kind ControlKind

	// Audio is the decoded PCM payload of an audio delta.
	Audio []byte

	// Text is the incremental text of a text or transcript delta.
	Text string

	// Code and Message are populated for error events.
	Code    string
	Message string

	// RawType is the wire type for unrecognized events.
	RawType string
}

type wireError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type wireEvent struct {
	Type  string     `json:"type"`
	Delta string     `json:"delta,omitempty"`
	Error *wireError `json:"error,omitempty"`

	// Older endpoint versions carry error fields at the top level.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// parseControlEvent maps one raw control message to a ControlEvent.
// Malformed input is never fatal: invalid JSON or a missing type field
// yields ok=false, an unknown type yields a ControlUnrecognized event.
func parseControlEvent(raw []byte) (ControlEvent, bool) {
	var ev wireEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ControlEvent{}, false
	}
	if ev.Type == "" {
		return ControlEvent{}, false
	}

	switch ev.Type {
	case typeSpeechStarted:
		return ControlEvent{Kind: ControlSpeechStarted}, true
	case typeSpeechStopped:
		return ControlEvent{Kind: ControlSpeechStopped}, true
	case typeResponseCreated:
		return ControlEvent{Kind: ControlResponseCreated}, true
	case typeResponseDone:
		return ControlEvent{Kind: ControlResponseDone}, true
	case typeAudioDelta:
		audio, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			return ControlEvent{}, false
		}
		return ControlEvent{Kind: ControlAudioDelta, Audio: audio}, true
	case typeAudioDone:
		return ControlEvent{Kind: ControlAudioDone}, true
	case typeTextDelta, typeTranscriptDelta:
		return ControlEvent{Kind: ControlTextDelta, Text: ev.Delta}, true
	case typeError, typeCancelFailed:
		code, message := ev.Code, ev.Message
		if ev.Error != nil {
			code, message = ev.Error.Code, ev.Error.Message
		}
		return ControlEvent{Kind: ControlError, Code: code, Message: message}, true
	default:
		return ControlEvent{Kind: ControlUnrecognized, RawType: ev.Type}, true
	}
}
