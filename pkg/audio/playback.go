package audio

import "sync"

// Player is a FIFO playback queue. Frames are enqueued by the control
// dispatcher and written to the device by a single playback goroutine,
// so the device never sees concurrent writes. Clear empties the queue
// immediately without waiting for the device.
type Player struct {
	device  PlaybackDevice
	frames  chan []byte
	done    chan struct{}
	once    sync.Once
	onError func(error)
}

// NewPlayer starts the playback loop. depth bounds the queue; when the
// queue is full the oldest frame is dropped to keep latency bounded.
// onError may be nil.
func NewPlayer(device PlaybackDevice, depth int, onError func(error)) *Player {
	if depth <= 0 {
		depth = 256
	}
	p := &Player{
		device:  device,
		frames:  make(chan []byte, depth),
		done:    make(chan struct{}),
		onError: onError,
	}
	go p.loop()
	return p
}

// Enqueue appends a frame to the playback queue. It never blocks the
// caller: on a full queue the oldest frame is discarded first.
func (p *Player) Enqueue(frame []byte) {
	if len(frame) == 0 {
		return
	}
	for {
		select {
		case <-p.done:
			return
		case p.frames <- frame:
			return
		default:
		}
		select {
		case <-p.frames:
		default:
		}
	}
}

// Clear discards every queued frame. A frame already handed to the
// device finishes; everything behind it is gone before Clear returns.
func (p *Player) Clear() {
	for {
		select {
		case <-p.frames:
		default:
			return
		}
	}
}

// Close stops the playback loop and closes the device.
func (p *Player) Close() {
	p.once.Do(func() {
		close(p.done)
		p.Clear()
		if err := p.device.Close(); err != nil && p.onError != nil {
			p.onError(err)
		}
	})
}

func (p *Player) loop() {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.frames:
			if err := p.device.Write(frame); err != nil {
				if p.onError != nil {
					p.onError(err)
				}
			}
		}
	}
}
