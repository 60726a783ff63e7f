package voice_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voxprep/voxprep/internal/providers/voice"
)

// gatewayServer is a scripted engine endpoint: it records the start frame and
// replies with a fixed sequence of event frames.
type gatewayServer struct {
	t      *testing.T
	frames []map[string]any

	mu    sync.Mutex
	start map[string]any
}

func (s *gatewayServer) handler(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	var start map[string]any
	if err := conn.ReadJSON(&start); err != nil {
		s.t.Errorf("read start frame: %v", err)
		return
	}
	s.mu.Lock()
	s.start = start
	s.mu.Unlock()

	for _, f := range s.frames {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}

	// Hold the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *gatewayServer) startFrame() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(ch <-chan voice.Event, n int, t *testing.T) []voice.Event {
	t.Helper()
	out := make([]voice.Event, 0, n)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d events: %v", len(out), out)
		}
	}
	return out
}

func TestGatewayDeliversEventsInOrder(t *testing.T) {
	server := &gatewayServer{t: t, frames: []map[string]any{
		{"type": "call-start"},
		{"type": "message", "messageType": "transcript", "transcriptType": "partial", "role": "user", "transcript": "hel"},
		{"type": "message", "messageType": "transcript", "transcriptType": "final", "role": "user", "transcript": "hello"},
		{"type": "call-end", "recordingUrl": "https://cdn.example/rec.wav"},
	}}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	events := make(chan voice.Event, 16)
	g := voice.NewGateway(wsURL(srv), "tok-1", nil)
	err := g.Connect(context.Background(), "wf-1", map[string]string{"username": "Ada"}, func(ev voice.Event) {
		events <- ev
	})
	if err != nil {
		t.Fatalf("Connect err: %v", err)
	}

	got := collect(events, 4, t)
	if got[0].Type != voice.EventCallStart {
		t.Fatalf("first event: %+v", got[0])
	}
	if got[1].TranscriptType != voice.TranscriptPartial || got[1].Transcript != "hel" {
		t.Fatalf("partial event: %+v", got[1])
	}
	if got[2].TranscriptType != voice.TranscriptFinal || got[2].Role != "user" {
		t.Fatalf("final event: %+v", got[2])
	}
	if got[3].Type != voice.EventCallEnd || got[3].RecordingURL != "https://cdn.example/rec.wav" {
		t.Fatalf("call-end event: %+v", got[3])
	}

	start := server.startFrame()
	if start["type"] != "start" || start["target"] != "wf-1" {
		t.Fatalf("unexpected start frame: %v", start)
	}
	vars, _ := start["variables"].(map[string]any)
	if vars["username"] != "Ada" {
		t.Fatalf("variables not forwarded: %v", start)
	}
}

func TestGatewayRejectsSecondConnect(t *testing.T) {
	server := &gatewayServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	g := voice.NewGateway(wsURL(srv), "", nil)
	if err := g.Connect(context.Background(), "wf-1", nil, func(voice.Event) {}); err != nil {
		t.Fatalf("Connect err: %v", err)
	}
	defer g.Disconnect()

	if err := g.Connect(context.Background(), "wf-1", nil, func(voice.Event) {}); err == nil {
		t.Fatal("second Connect on a live gateway must fail")
	}
}

func TestGatewayDisconnectSendsStopAndIsIdempotent(t *testing.T) {
	stopCh := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var start map[string]any
		_ = conn.ReadJSON(&start)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]any
		if json.Unmarshal(data, &frame) == nil {
			stopCh <- frame
		}
	}))
	defer srv.Close()

	events := make(chan voice.Event, 4)
	g := voice.NewGateway(wsURL(srv), "", nil)
	if err := g.Connect(context.Background(), "wf-1", nil, func(ev voice.Event) { events <- ev }); err != nil {
		t.Fatalf("Connect err: %v", err)
	}

	if err := g.Disconnect(); err != nil {
		t.Fatalf("Disconnect err: %v", err)
	}
	if err := g.Disconnect(); err != nil {
		t.Fatalf("second Disconnect must be a no-op, got %v", err)
	}

	select {
	case frame := <-stopCh:
		if frame["type"] != "stop" {
			t.Fatalf("expected stop frame, got %v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stop frame never arrived")
	}

	// Local teardown surfaces as channel noise: an error event with no payload.
	got := collect(events, 1, t)
	if got[0].Type != voice.EventError || got[0].ErrorPayload != "" {
		t.Fatalf("expected empty-payload error event, got %+v", got[0])
	}
}
