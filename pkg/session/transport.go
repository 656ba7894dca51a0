package session

import "context"

// Transport is a bidirectional channel carrying one control message
// stream and one audio stream. Two bindings exist: a WebRTC
// media-negotiation binding and a WebSocket streaming binding. The
// session logic is protocol-agnostic above this interface.
type Transport interface {
	// Open establishes the connection and performs any handshake the
	// binding requires. It may be called at most once; a second call
	// returns ErrAlreadyOpen. Handler callbacks are invoked on the
	// transport's own goroutines, never on the caller's.
	Open(ctx context.Context, h Handler) error

	// SendControl writes one control message. Messages sent before the
	// channel is ready are dropped, not queued; callers should wait for
	// Handler.OnReady.
	SendControl(msg []byte) error

	// SendAudio forwards one PCM capture frame. The WebRTC binding
	// writes it to the local media track; the WebSocket binding wraps
	// it as a discrete input_audio_buffer.append message.
	SendAudio(frame []byte) error

	// Close releases all transport resources. It is idempotent and safe
	// to call before Open completes.
	Close() error
}

// Handler receives transport callbacks.
type Handler interface {
	// OnReady fires once the channel can carry control messages. For
	// the WebRTC binding this is after the SDP exchange has fully
	// completed and the event channel opened; for the WebSocket binding
	// it is the socket open.
	OnReady()

	// OnControlMessage delivers one inbound control message, in wire
	// order.
	OnControlMessage(msg []byte)

	// OnAudioFrame delivers one inbound PCM playback frame for bindings
	// that carry audio outside the control stream.
	OnAudioFrame(frame []byte)

	// OnClosed reports the channel closing. fatal marks a permanent
	// transport failure as opposed to a deliberate local close.
	OnClosed(reason string, fatal bool)
}
