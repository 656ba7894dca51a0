package audio

import (
	"sync"
	"testing"
	"time"
)

// fakeCapture hands frames to the bridge on demand.
type fakeCapture struct {
	mu      sync.Mutex
	onFrame func([]byte)
	started bool
	stopped bool
}

func (f *fakeCapture) Start(onFrame func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = onFrame
	f.started = true
	return nil
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeCapture) deliver(frame []byte) {
	f.mu.Lock()
	cb := f.onFrame
	f.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// fakePlayback records written frames.
type fakePlayback struct {
	mu     sync.Mutex
	frames [][]byte
	block  chan struct{}
}

func (f *fakePlayback) Write(frame []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakePlayback) Close() error { return nil }

func (f *fakePlayback) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func loudFrame() []byte {
	return []byte{0x00, 0x40, 0x00, 0xC0} // peaks at 16384
}

func quietFrame() []byte {
	return []byte{0x10, 0x00, 0xF0, 0xFF} // peaks at 16
}

func captureOne(t *testing.T, b *Bridge, mic *fakeCapture, frame []byte) []byte {
	t.Helper()
	var got []byte
	var mu sync.Mutex
	if err := b.StartCapture(func(out []byte) {
		mu.Lock()
		got = out
		mu.Unlock()
	}); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	mic.deliver(frame)
	b.StopCapture()
	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestGatedPolicySubstitutesSilence(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{Policy: PolicyGated, GateThreshold: 1000})
	defer b.Close()

	b.SetAssistantSpeaking(true)
	got := captureOne(t, b, mic, quietFrame())

	if len(got) != len(quietFrame()) {
		t.Fatalf("Expected same-length frame, got %d bytes", len(got))
	}
	if MaxAmplitude(got) != 0 {
		t.Errorf("Expected silent frame, got amplitude %d", MaxAmplitude(got))
	}
}

func TestGatedPolicyPassesLoudFrames(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{Policy: PolicyGated, GateThreshold: 1000})
	defer b.Close()

	b.SetAssistantSpeaking(true)
	got := captureOne(t, b, mic, loudFrame())

	if MaxAmplitude(got) != 16384 {
		t.Errorf("Expected loud frame to pass unmodified, got amplitude %d", MaxAmplitude(got))
	}
}

func TestGatedPolicyIdleAssistant(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{Policy: PolicyGated, GateThreshold: 1000})
	defer b.Close()

	got := captureOne(t, b, mic, quietFrame())

	if MaxAmplitude(got) == 0 {
		t.Error("Expected quiet frame to pass while assistant is idle")
	}
}

func TestAlwaysPolicyForwardsEverything(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{Policy: PolicyAlways})
	defer b.Close()

	b.SetAssistantSpeaking(true)
	got := captureOne(t, b, mic, quietFrame())

	if MaxAmplitude(got) == 0 {
		t.Error("Expected frame to pass unmodified under PolicyAlways")
	}
}

func TestStartCaptureTwice(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{})
	defer b.Close()

	if err := b.StartCapture(func([]byte) {}); err != nil {
		t.Fatalf("First StartCapture failed: %v", err)
	}
	if err := b.StartCapture(func([]byte) {}); err != ErrCaptureActive {
		t.Errorf("Expected ErrCaptureActive, got %v", err)
	}
}

func TestCaptureCopiesDeviceBuffer(t *testing.T) {
	mic := &fakeCapture{}
	b := NewBridge(mic, &fakePlayback{}, Config{Policy: PolicyAlways})
	defer b.Close()

	var got []byte
	var mu sync.Mutex
	if err := b.StartCapture(func(out []byte) {
		mu.Lock()
		got = out
		mu.Unlock()
	}); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}

	frame := loudFrame()
	mic.deliver(frame)
	frame[0] = 0xFF
	frame[1] = 0x7F

	mu.Lock()
	defer mu.Unlock()
	if MaxAmplitude(got) != 16384 {
		t.Error("Expected delivered frame to be isolated from device buffer reuse")
	}
}

func TestPlaybackOrder(t *testing.T) {
	dev := &fakePlayback{}
	b := NewBridge(&fakeCapture{}, dev, Config{})
	defer b.Close()

	b.Play([]byte{1, 1})
	b.Play([]byte{2, 2})
	b.Play([]byte{3, 3})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(dev.written()) == 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	got := dev.written()
	if len(got) != 3 {
		t.Fatalf("Expected 3 frames written, got %d", len(got))
	}
	for i, frame := range got {
		if frame[0] != byte(i+1) {
			t.Errorf("Frame %d out of order: got %v", i, frame)
		}
	}
}

func TestClearPlaybackDropsQueuedFrames(t *testing.T) {
	dev := &fakePlayback{block: make(chan struct{})}
	b := NewBridge(&fakeCapture{}, dev, Config{})

	// First frame occupies the device; the rest stay queued.
	b.Play([]byte{1, 1})
	time.Sleep(10 * time.Millisecond)
	b.Play([]byte{2, 2})
	b.Play([]byte{3, 3})

	b.ClearPlayback()
	close(dev.block)
	time.Sleep(20 * time.Millisecond)

	got := dev.written()
	if len(got) != 1 {
		t.Fatalf("Expected only the in-flight frame after clear, got %d frames", len(got))
	}
	if got[0][0] != 1 {
		t.Errorf("Expected frame 1 to finish, got %v", got[0])
	}
	b.Close()
}
