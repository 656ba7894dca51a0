// Package socket implements the WebSocket streaming binding. Control
// messages and audio share one socket: capture frames are wrapped as
// discrete append messages, playback audio arrives base64-encoded
// inside control events, so the session core handles it and this
// binding never calls OnAudioFrame.
package socket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/voiceline-ai/voiceline/pkg/session"
)

const defaultURL = "wss://api.openai.com/v1/realtime"

// Config parameterizes the socket binding.
type Config struct {
	// URL is the realtime endpoint. Empty means the default endpoint.
	URL string

	APIKey string

	// Model is appended as a query parameter.
	Model string

	Logger session.Logger
}

// Transport is the WebSocket binding of session.Transport.
type Transport struct {
	config Config
	logger session.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	opened bool
	closed bool
	cancel context.CancelFunc
}

// New creates an unopened socket transport.
func New(config Config) *Transport {
	logger := config.Logger
	if logger == nil {
		logger = &session.NoOpLogger{}
	}
	return &Transport{config: config, logger: logger}
}

// Open dials the endpoint and starts the read loop. OnReady fires from
// the read goroutine before any control message is delivered.
func (t *Transport) Open(ctx context.Context, h session.Handler) error {
	t.mu.Lock()
	if t.opened {
		t.mu.Unlock()
		return session.ErrAlreadyOpen
	}
	t.opened = true
	t.mu.Unlock()

	endpoint := t.config.URL
	if endpoint == "" {
		endpoint = defaultURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if t.config.Model != "" {
		q := u.Query()
		q.Set("model", t.config.Model)
		u.RawQuery = q.Encode()
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+t.config.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetReadLimit(10 * 1024 * 1024)

	readCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	t.logger.Debug("socket connected", "url", u.Redacted())
	go t.readLoop(readCtx, conn, h)
	return nil
}

// SendControl writes one control message as a text frame. Before the
// socket is dialed the message is dropped.
func (t *Transport) SendControl(msg []byte) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if conn == nil || closed {
		t.logger.Debug("dropping control message, socket not ready")
		return nil
	}
	return conn.Write(context.Background(), websocket.MessageText, msg)
}

// SendAudio wraps one PCM frame as an append message.
func (t *Transport) SendAudio(frame []byte) error {
	msg, err := session.MarshalAudioAppend(frame)
	if err != nil {
		return err
	}
	return t.SendControl(msg)
}

// Close shuts the socket down. Safe to call at any point, any number of
// times.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn, h session.Handler) {
	h.OnReady()

	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				h.OnClosed("closed", false)
			} else {
				t.logger.Warn("socket read failed", "error", err)
				h.OnClosed(err.Error(), true)
			}
			return
		}
		h.OnControlMessage(payload)
	}
}
