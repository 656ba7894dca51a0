package session

import (
	"encoding/base64"
	"encoding/json"
)

// Outbound command serialization. Each function is pure: the same input
// always produces the same wire bytes.

type sessionPayload struct {
	Model             string         `json:"model,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Modalities        []string       `json:"modalities,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type itemPayload struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []itemContent `json:"content"`
}

// MarshalSessionUpdate serializes a session.update command carrying the
// configuration. Consumers outside the router never inspect the session
// object; it is opaque wire payload.
func MarshalSessionUpdate(cfg Config) ([]byte, error) {
	return json.Marshal(struct {
		Type    string         `json:"type"`
		Session sessionPayload `json:"session"`
	}{
		Type: typeSessionUpdate,
		Session: sessionPayload{
			Model:             cfg.Model,
			Voice:             cfg.Voice,
			Instructions:      cfg.Instructions,
			Modalities:        cfg.Modalities,
			InputAudioFormat:  cfg.InputAudioFormat,
			OutputAudioFormat: cfg.OutputAudioFormat,
			TurnDetection:     cfg.TurnDetection,
		},
	})
}

// MarshalAudioAppend wraps one PCM frame as an input_audio_buffer.append
// message (socket binding).
func MarshalAudioAppend(pcm []byte) ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{
		Type:  typeInputAudioAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// MarshalResponseCancel serializes a response.cancel command.
func MarshalResponseCancel() []byte {
	return []byte(`{"type":"` + typeResponseCancel + `"}`)
}

// MarshalInputCommit serializes an input_audio_buffer.commit command.
func MarshalInputCommit() []byte {
	return []byte(`{"type":"` + typeInputAudioCommit + `"}`)
}

// MarshalInputClear serializes an input_audio_buffer.clear command.
func MarshalInputClear() []byte {
	return []byte(`{"type":"` + typeInputAudioClear + `"}`)
}

// MarshalItemCreate serializes a conversation.item.create command
// injecting a user text message.
func MarshalItemCreate(text string) ([]byte, error) {
	return json.Marshal(struct {
		Type string      `json:"type"`
		Item itemPayload `json:"item"`
	}{
		Type: typeItemCreate,
		Item: itemPayload{
			Type:    "message",
			Role:    "user",
			Content: []itemContent{{Type: "input_text", Text: text}},
		},
	})
}

// MarshalResponseCreate serializes the response.create trigger that
// follows a text injection.
func MarshalResponseCreate() []byte {
	return []byte(`{"type":"` + typeResponseCreate + `"}`)
}
