package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voiceline-ai/voiceline/pkg/audio"
	"github.com/voiceline-ai/voiceline/pkg/config"
	"github.com/voiceline-ai/voiceline/pkg/session"
	"github.com/voiceline-ai/voiceline/pkg/transport/socket"
	"github.com/voiceline-ai/voiceline/pkg/transport/webrtc"
)

const sampleRate = 24000

// consoleLogger routes session logs through the standard logger.
type consoleLogger struct{}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {}
func (c *consoleLogger) Info(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"INFO:", msg}, args...)...)
}
func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"WARN:", msg}, args...)...)
}
func (c *consoleLogger) Error(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"ERROR:", msg}, args...)...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	sessionCfg := session.DefaultConfig()
	if cfg.Model != "" {
		sessionCfg.Model = cfg.Model
	}
	if cfg.Voice != "" {
		sessionCfg.Voice = cfg.Voice
	}
	if cfg.Instructions != "" {
		sessionCfg.Instructions = cfg.Instructions
	}
	sessionCfg.CaptureSampleRate = sampleRate
	sessionCfg.PlaybackSampleRate = sampleRate

	device, err := newDuplexDevice(sampleRate, cfg.RecordPath != "")
	if err != nil {
		log.Fatalf("Error: audio device init failed: %v", err)
	}

	bridge := audio.NewBridge(device, device, audio.Config{
		Policy:        sessionCfg.CapturePolicy,
		GateThreshold: sessionCfg.GateThreshold,
		OnError: func(err error) {
			log.Printf("WARN: playback error: %v", err)
		},
	})

	logger := &consoleLogger{}

	var transport session.Transport
	switch cfg.Binding {
	case config.BindingWebRTC:
		transport = webrtc.New(webrtc.Config{
			APIKey: cfg.APIKey,
			Model:  sessionCfg.Model,
			Logger: logger,
		})
	default:
		transport = socket.New(socket.Config{
			APIKey: cfg.APIKey,
			Model:  sessionCfg.Model,
			Logger: logger,
		})
	}

	s := session.NewWithLogger(transport, bridge, nil, sessionCfg, logger)

	fmt.Printf("Configured: binding=%s | model=%s | voice=%s\n", cfg.Binding, sessionCfg.Model, sessionCfg.Voice)
	fmt.Println("Voice Assistant Started! Listening to microphone...")
	fmt.Println("Press Ctrl+C to exit")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := s.Connect(ctx); err != nil {
		cancel()
		log.Fatalf("Error: %v", err)
	}
	cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		s.Disconnect()
	}()

	for event := range s.Events() {
		switch event.Kind {
		case session.SessionStarted:
			if err := s.StartListening(); err != nil {
				log.Printf("ERROR: microphone start failed: %v", err)
			}
		case session.SpeechStarted:
			fmt.Printf("\r\033[K[USER] Speaking...\n")
		case session.SpeechStopped:
			fmt.Printf("\r\033[K[USER] Stopped\n")
		case session.ResponseStarted:
			fmt.Printf("\r\033[K[ASSISTANT] Responding...\n")
		case session.ResponseCompleted:
			fmt.Printf("\r\033[K[ASSISTANT] Done\n")
		case session.Transcript:
			fmt.Print(event.Message)
		case session.SessionError:
			fmt.Printf("\r\033[K[ERROR] %s\n", event.Message)
		case session.SessionEnded:
			fmt.Printf("\r\033[K[SESSION] Ended\n")
		}
	}

	if cfg.RecordPath != "" {
		pcm := device.recordedAudio()
		if len(pcm) > 0 {
			wav := audio.EncodeWAV(pcm, sampleRate)
			if err := os.WriteFile(cfg.RecordPath, wav, 0o644); err != nil {
				log.Printf("ERROR: recording write failed: %v", err)
			} else {
				fmt.Printf("Recording saved to %s\n", cfg.RecordPath)
			}
		}
	}
}
