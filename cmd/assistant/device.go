package main

import (
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// maxPending caps the playback bytes buffered inside the device so an
// interruption is audible almost immediately. 200ms at 24kHz mono s16.
const maxPending = 24000 * 2 / 5

// duplexDevice drives one malgo full-duplex stream and adapts it to the
// bridge's capture and playback interfaces. The capture half hands
// microphone frames to the bridge; the playback half drains a small
// pending buffer into the device callback.
type duplexDevice struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device

	mu       sync.Mutex
	onFrame  func([]byte)
	pending  []byte
	recorded []byte
	record   bool
	closed   bool
}

func newDuplexDevice(sampleRate int, record bool) (*duplexDevice, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}

	d := &duplexDevice{mctx: mctx, record: record}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1 // Better compatibility on some systems

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onSamples,
	})
	if err != nil {
		mctx.Uninit()
		return nil, err
	}
	d.device = device
	return d, nil
}

func (d *duplexDevice) onSamples(pOutput, pInput []byte, frameCount uint32) {
	if pInput != nil {
		d.mu.Lock()
		cb := d.onFrame
		d.mu.Unlock()
		if cb != nil {
			cb(pInput)
		}
	}
	if pOutput != nil {
		d.mu.Lock()
		n := copy(pOutput, d.pending)
		d.pending = d.pending[n:]
		d.mu.Unlock()
		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}
	}
}

// Start begins capture delivery. The device itself runs from the first
// Start call onward.
func (d *duplexDevice) Start(onFrame func([]byte)) error {
	d.mu.Lock()
	d.onFrame = onFrame
	started := d.device.IsStarted()
	d.mu.Unlock()

	if !started {
		return d.device.Start()
	}
	return nil
}

// Stop halts capture delivery. Playback keeps running so queued
// assistant audio can finish.
func (d *duplexDevice) Stop() error {
	d.mu.Lock()
	d.onFrame = nil
	d.mu.Unlock()
	return nil
}

// Write queues assistant audio for the speaker. It applies back
// pressure: the call blocks while the device-side buffer is full, so
// the playback queue upstream stays clearable.
func (d *duplexDevice) Write(frame []byte) error {
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return nil
		}
		if len(d.pending) < maxPending {
			d.pending = append(d.pending, frame...)
			if d.record {
				d.recorded = append(d.recorded, frame...)
			}
			d.mu.Unlock()
			return nil
		}
		d.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
}

// Close releases the device and the audio context.
func (d *duplexDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.onFrame = nil
	d.pending = nil
	d.mu.Unlock()

	d.device.Uninit()
	return d.mctx.Uninit()
}

// recordedAudio returns the assistant audio heard this session.
func (d *duplexDevice) recordedAudio() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.recorded))
	copy(out, d.recorded)
	return out
}
