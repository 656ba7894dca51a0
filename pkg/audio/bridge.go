package audio

import (
	"errors"
	"sync"
	"sync/atomic"
)

// CaptureDevice produces microphone PCM frames. Start may be called
// once; the device invokes onFrame from its own capture goroutine and
// may reuse the frame buffer between calls.
type CaptureDevice interface {
	Start(onFrame func([]byte)) error
	Stop() error
}

// PlaybackDevice consumes PCM frames for the speaker. Write may block
// for the duration of the frame.
type PlaybackDevice interface {
	Write(frame []byte) error
	Close() error
}

// Router switches the platform audio route for a voice session and
// restores it afterwards.
type Router interface {
	EnableSpeaker() error
	Restore() error
}

// ErrCaptureActive is returned when capture is started twice.
var ErrCaptureActive = errors.New("capture already active")

// Config shapes a Bridge.
type Config struct {
	// Policy applies to frames captured while the assistant speaks.
	Policy Policy
	// GateThreshold is the peak-amplitude floor for PolicyGated.
	GateThreshold int
	// QueueDepth bounds the playback queue in frames. Zero means the
	// default depth.
	QueueDepth int
	// OnError receives device failures. May be nil.
	OnError func(error)
}

// Bridge connects the session core to real audio hardware. Capture
// frames flow through the configured policy to the session's sink;
// assistant audio flows through a FIFO playback queue that can be
// cleared instantly on interruption.
type Bridge struct {
	capture CaptureDevice
	player  *Player
	policy  Policy
	gate    int
	echo    *EchoSuppressor

	mu        sync.Mutex
	capturing bool
	closed    bool

	assistantSpeaking atomic.Bool
}

// NewBridge wires a capture and playback device into a bridge.
func NewBridge(capture CaptureDevice, playback PlaybackDevice, cfg Config) *Bridge {
	b := &Bridge{
		capture: capture,
		player:  NewPlayer(playback, cfg.QueueDepth, cfg.OnError),
		policy:  cfg.Policy,
		gate:    cfg.GateThreshold,
	}
	if cfg.Policy == PolicyEchoSuppressed {
		b.echo = NewEchoSuppressor()
	}
	return b
}

// StartCapture begins pumping microphone frames to sink. Each frame is
// copied out of the device buffer and passed through the capture policy
// before delivery.
func (b *Bridge) StartCapture(sink func([]byte)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bridge closed")
	}
	if b.capturing {
		b.mu.Unlock()
		return ErrCaptureActive
	}
	b.capturing = true
	b.mu.Unlock()

	err := b.capture.Start(func(frame []byte) {
		out := make([]byte, len(frame))
		copy(out, frame)
		sink(b.applyPolicy(out))
	})
	if err != nil {
		b.mu.Lock()
		b.capturing = false
		b.mu.Unlock()
		return err
	}
	return nil
}

// StopCapture halts the capture pump. Safe to call when idle.
func (b *Bridge) StopCapture() {
	b.mu.Lock()
	if !b.capturing {
		b.mu.Unlock()
		return
	}
	b.capturing = false
	b.mu.Unlock()
	_ = b.capture.Stop()
}

// Play appends assistant audio to the playback queue.
func (b *Bridge) Play(frame []byte) {
	if b.echo != nil {
		b.echo.RecordPlayed(frame)
	}
	b.player.Enqueue(frame)
}

// ClearPlayback drops all queued assistant audio immediately.
func (b *Bridge) ClearPlayback() {
	b.player.Clear()
	if b.echo != nil {
		b.echo.Clear()
	}
}

// SetAssistantSpeaking tells the capture policy whether assistant audio
// is currently in flight.
func (b *Bridge) SetAssistantSpeaking(speaking bool) {
	b.assistantSpeaking.Store(speaking)
}

// Close stops capture and playback and releases both devices.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	capturing := b.capturing
	b.capturing = false
	b.mu.Unlock()

	if capturing {
		_ = b.capture.Stop()
	}
	b.player.Close()
}

// applyPolicy returns the frame to forward upstream. Suppression always
// yields a silent frame of the same length, never a dropped frame.
func (b *Bridge) applyPolicy(frame []byte) []byte {
	if !b.assistantSpeaking.Load() {
		return frame
	}

	switch b.policy {
	case PolicyGated:
		if MaxAmplitude(frame) < b.gate {
			return make([]byte, len(frame))
		}
	case PolicyEchoSuppressed:
		if b.echo.IsEcho(frame) {
			return make([]byte, len(frame))
		}
	}
	return frame
}
