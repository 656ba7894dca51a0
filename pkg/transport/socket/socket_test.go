package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type recordingHandler struct {
	mu       sync.Mutex
	ready    bool
	messages [][]byte
	closed   bool
	fatal    bool
}

func (r *recordingHandler) OnReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = true
}

func (r *recordingHandler) OnControlMessage(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingHandler) OnAudioFrame(frame []byte) {}

func (r *recordingHandler) OnClosed(reason string, fatal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.fatal = fatal
}

func (r *recordingHandler) snapshot() (bool, int, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready, len(r.messages), r.closed, r.fatal
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSendControlBeforeOpen(t *testing.T) {
	tr := New(Config{APIKey: "test"})
	if err := tr.SendControl([]byte(`{"type":"response.cancel"}`)); err != nil {
		t.Errorf("Expected dropped message, got error %v", err)
	}
}

func TestCloseBeforeOpen(t *testing.T) {
	tr := New(Config{APIKey: "test"})
	if err := tr.Close(); err != nil {
		t.Errorf("Expected Close before Open to succeed, got %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}
}

func TestOpenTwice(t *testing.T) {
	tr := New(Config{APIKey: "test"})
	tr.opened = true
	if err := tr.Open(context.Background(), &recordingHandler{}); err == nil {
		t.Error("Expected error on second Open")
	}
}

func TestSocketRoundtrip(t *testing.T) {
	var headerMu sync.Mutex
	var gotAuth, gotBeta string
	received := make(chan []byte, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerMu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("OpenAI-Beta")
		headerMu.Unlock()
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		conn.Write(r.Context(), websocket.MessageText, []byte(`{"type":"session.created"}`))

		_, payload, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		received <- payload

		// Hold the socket open until the client closes it.
		conn.Read(r.Context())
	}))
	defer server.Close()

	tr := New(Config{
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
		APIKey: "test-key",
		Model:  "gpt-4o-realtime-preview",
	})
	h := &recordingHandler{}
	if err := tr.Open(context.Background(), h); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	waitFor(t, func() bool {
		ready, n, _, _ := h.snapshot()
		return ready && n == 1
	})

	if err := tr.SendAudio([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	select {
	case payload := <-received:
		var decoded struct {
			Type  string `json:"type"`
			Audio string `json:"audio"`
		}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("Server received invalid JSON: %v", err)
		}
		if decoded.Type != "input_audio_buffer.append" {
			t.Errorf("Expected append message, got %q", decoded.Type)
		}
		if decoded.Audio == "" {
			t.Error("Expected base64 audio payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never received the audio frame")
	}

	headerMu.Lock()
	auth, beta := gotAuth, gotBeta
	headerMu.Unlock()
	if auth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", auth)
	}
	if beta != "realtime=v1" {
		t.Errorf("Expected realtime beta header, got %q", beta)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	waitFor(t, func() bool {
		_, _, closed, fatal := h.snapshot()
		return closed && !fatal
	})
}
