package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Gateway talks to a remote voice-agent engine over a websocket. One Gateway
// owns at most one live connection; it must not be shared across two call
// controllers at the same time.
type Gateway struct {
	URL       string
	AuthToken string
	Logger    *logrus.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewGateway(url, authToken string, log *logrus.Logger) *Gateway {
	if log == nil {
		log = logrus.New()
	}
	return &Gateway{URL: url, AuthToken: authToken, Logger: log}
}

type connectFrame struct {
	Type      string            `json:"type"` // "start"
	Target    string            `json:"target"`
	Variables map[string]string `json:"variables,omitempty"`
}

type eventFrame struct {
	Type           string `json:"type"`
	MessageType    string `json:"messageType,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Role           string `json:"role,omitempty"`
	RecordingURL   string `json:"recordingUrl,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (g *Gateway) Connect(ctx context.Context, target string, variables map[string]string, h Handler) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn != nil {
		return errors.New("voice gateway: connection already active")
	}

	header := http.Header{}
	if g.AuthToken != "" {
		header.Set("Authorization", "Bearer "+g.AuthToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, g.URL, header)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(connectFrame{Type: "start", Target: target, Variables: variables}); err != nil {
		_ = conn.Close()
		return err
	}
	conn.SetWriteDeadline(time.Time{})

	g.conn = conn
	g.closed = false

	go g.readLoop(conn, h)
	return nil
}

// readLoop pumps engine frames to the handler in arrival order. A single
// goroutine per connection keeps handler execution serial.
func (g *Gateway) readLoop(conn *websocket.Conn, h Handler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			g.mu.Lock()
			wasClosed := g.closed
			if g.conn == conn {
				g.conn = nil
			}
			g.mu.Unlock()

			// Local teardown surfaces as a read error too; the empty
			// payload marks it as channel noise, not a real failure.
			if wasClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h(Event{Type: EventError})
				return
			}
			g.Logger.WithError(err).Warn("voice gateway read failed")
			h(Event{Type: EventError, ErrorPayload: err.Error()})
			return
		}

		var f eventFrame
		if err := json.Unmarshal(data, &f); err != nil {
			g.Logger.WithError(err).Warn("voice gateway: undecodable frame")
			continue
		}

		h(Event{
			Type:           EventType(f.Type),
			MessageType:    f.MessageType,
			TranscriptType: f.TranscriptType,
			Transcript:     f.Transcript,
			Role:           f.Role,
			RecordingURL:   f.RecordingURL,
			ErrorPayload:   f.Error,
		})

		if EventType(f.Type) == EventCallEnd {
			g.mu.Lock()
			g.closed = true
			if g.conn == conn {
				g.conn = nil
			}
			g.mu.Unlock()
			_ = conn.Close()
			return
		}
	}
}

func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		return nil
	}
	g.closed = true

	conn := g.conn
	g.conn = nil

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteJSON(map[string]string{"type": "stop"})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"))
	return conn.Close()
}
