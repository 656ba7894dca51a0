package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestMarshalSessionUpdate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Voice = "alloy"
	cfg.Instructions = "be brief"

	raw, err := MarshalSessionUpdate(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		Session struct {
			Voice         string `json:"voice"`
			Instructions  string `json:"instructions"`
			TurnDetection struct {
				Type      string `json:"type"`
				Eagerness string `json:"eagerness"`
			} `json:"turn_detection"`
		} `json:"session"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Type != "session.update" {
		t.Errorf("Expected type session.update, got %q", decoded.Type)
	}
	if decoded.Session.Voice != "alloy" {
		t.Errorf("Expected voice alloy, got %q", decoded.Session.Voice)
	}
	if decoded.Session.Instructions != "be brief" {
		t.Errorf("Expected instructions passthrough, got %q", decoded.Session.Instructions)
	}
	if decoded.Session.TurnDetection.Type != VADSemantic {
		t.Errorf("Expected turn detection %s, got %q", VADSemantic, decoded.Session.TurnDetection.Type)
	}
}

func TestMarshalSessionUpdateDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a, err := MarshalSessionUpdate(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := MarshalSessionUpdate(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Expected identical bytes for identical config")
	}
}

func TestMarshalAudioAppend(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	raw, err := MarshalAudioAppend(pcm)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Type != "input_audio_buffer.append" {
		t.Errorf("Expected type input_audio_buffer.append, got %q", decoded.Type)
	}
	got, err := base64.StdEncoding.DecodeString(decoded.Audio)
	if err != nil {
		t.Fatalf("Audio field is not base64: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("Expected PCM roundtrip, got %v", got)
	}
}

func TestMarshalItemCreate(t *testing.T) {
	raw, err := MarshalItemCreate("hello there")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Item struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"item"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Type != "conversation.item.create" {
		t.Errorf("Expected type conversation.item.create, got %q", decoded.Type)
	}
	if decoded.Item.Role != "user" {
		t.Errorf("Expected role user, got %q", decoded.Item.Role)
	}
	if len(decoded.Item.Content) != 1 || decoded.Item.Content[0].Text != "hello there" {
		t.Errorf("Expected single input_text content, got %+v", decoded.Item.Content)
	}
}

func TestStaticCommands(t *testing.T) {
	tests := []struct {
		raw  []byte
		want string
	}{
		{MarshalResponseCancel(), "response.cancel"},
		{MarshalResponseCreate(), "response.create"},
		{MarshalInputCommit(), "input_audio_buffer.commit"},
		{MarshalInputClear(), "input_audio_buffer.clear"},
	}
	for _, tt := range tests {
		var decoded struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(tt.raw, &decoded); err != nil {
			t.Fatalf("Command %q is not valid JSON: %v", tt.want, err)
		}
		if decoded.Type != tt.want {
			t.Errorf("Expected type %q, got %q", tt.want, decoded.Type)
		}
	}
}
