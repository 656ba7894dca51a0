// Package config loads process configuration from the environment,
// with an optional .env file for development.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Transport bindings selectable at startup.
const (
	BindingWebRTC = "webrtc"
	BindingSocket = "socket"
)

// Config is everything the assistant process needs from its
// environment.
type Config struct {
	// APIKey authenticates against the realtime endpoint.
	APIKey string

	// Binding selects the transport: BindingWebRTC or BindingSocket.
	Binding string

	// Model and Voice override the session defaults when set.
	Model string
	Voice string

	// Instructions is the persona prompt. Optional.
	Instructions string

	// RecordPath, when set, writes the assistant audio of the session
	// to a WAV file at this path on shutdown.
	RecordPath string
}

// ErrMissingAPIKey is returned when no API key is present in the
// environment.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY must be set")

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over file entries.
func Load() (Config, error) {
	// Ignore a missing .env; the system environment is authoritative.
	_ = godotenv.Load()

	cfg := Config{
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		Binding:      os.Getenv("VOICELINE_BINDING"),
		Model:        os.Getenv("VOICELINE_MODEL"),
		Voice:        os.Getenv("VOICELINE_VOICE"),
		Instructions: os.Getenv("VOICELINE_INSTRUCTIONS"),
		RecordPath:   os.Getenv("VOICELINE_RECORD_PATH"),
	}

	if cfg.APIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.Binding == "" {
		cfg.Binding = BindingSocket
	}
	if cfg.Binding != BindingSocket && cfg.Binding != BindingWebRTC {
		return Config{}, errors.New("VOICELINE_BINDING must be socket or webrtc")
	}
	return cfg, nil
}
