package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/voxprep/voxprep/internal/call"
	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/providers/voice"
	"github.com/voxprep/voxprep/internal/services"
	"github.com/voxprep/voxprep/internal/utils"
)

// CallWSHandler hosts one call surface per socket: it owns exactly one
// controller for the lifetime of the connection and relays lifecycle and
// transcript updates to the client and onto Redis for observers.
type CallWSHandler struct {
	Interviews services.InterviewService
	Generation services.GenerationService
	Recordings call.RecordingQueue // optional
	Redis      *redis.Client
	Logger     *logrus.Logger

	// EngineFactory builds a fresh engine per call; connections are never
	// shared across controllers.
	EngineFactory func() voice.Engine

	// WorkflowTarget drives generate-mode calls, AssistantTarget
	// interview-mode calls.
	WorkflowTarget  string
	AssistantTarget string

	upgrader websocket.Upgrader
}

func NewCallWSHandler(
	interviews services.InterviewService,
	generation services.GenerationService,
	recordings call.RecordingQueue,
	rdb *redis.Client,
	engineFactory func() voice.Engine,
	workflowTarget, assistantTarget string,
	log *logrus.Logger,
) *CallWSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &CallWSHandler{
		Interviews:      interviews,
		Generation:      generation,
		Recordings:      recordings,
		Redis:           rdb,
		Logger:          log,
		EngineFactory:   engineFactory,
		WorkflowTarget:  workflowTarget,
		AssistantTarget: assistantTarget,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

type callClientMsg struct {
	Type string `json:"type"` // start | stop
}

type callUpdateMsg struct {
	Type        string `json:"type"` // state
	InterviewID string `json:"interview_id,omitempty"`
	State       string `json:"state"`
	LastHeard   string `json:"last_heard,omitempty"`
	Speaking    bool   `json:"speaking"`
}

type callResultMsg struct {
	Type        string `json:"type"` // result
	Success     bool   `json:"success"`
	InterviewID string `json:"interview_id,omitempty"`
	FeedbackID  string `json:"feedback_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (h *CallWSHandler) CallWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	userName := c.GetString("user_name")

	mode := models.Mode(c.Query("mode"))
	if mode == "" {
		mode = models.ModeGenerate
	}
	if mode != models.ModeGenerate && mode != models.ModeInterview {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallWSHandler.CallWS", "mode must be generate or interview", nil))
		return
	}

	cfg := call.Config{
		Mode:       mode,
		UserID:     userID,
		UserName:   userName,
		FeedbackID: c.Query("feedback_id"),
		Target:     h.WorkflowTarget,
	}

	if mode == models.ModeInterview {
		interviewID := c.Query("interview_id")
		iv, err := h.Interviews.Get(c.Request.Context(), interviewID)
		if err != nil {
			writeError(c, err)
			return
		}
		if iv.UserID != userID {
			writeError(c, utils.E(utils.CodeForbidden, "CallWSHandler.CallWS", "forbidden", nil))
			return
		}
		cfg.InterviewID = iv.InterviewID
		cfg.Questions = iv.Questions
		cfg.Target = h.AssistantTarget
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote a response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := &call.Dispatcher{
		Pipeline:   h.Generation,
		Recordings: h.Recordings,
		Logger:     h.Logger,
	}

	var ctrl *call.Controller
	cfg.OnUpdate = func(u call.Update) {
		msg := callUpdateMsg{
			Type:      "state",
			State:     u.State.String(),
			LastHeard: u.LastHeard,
			Speaking:  u.Speaking,
		}
		if ctrl != nil {
			msg.InterviewID = ctrl.InterviewID()
		}
		_ = wc.writeJSON(msg)
		h.relay(ctx, msg)
	}

	ctrl = call.NewController(cfg, h.EngineFactory(), h.Interviews, dispatcher, h.Logger)
	defer ctrl.Close()

	// reader: client commands -> controller
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg callClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(gin.H{"type": "error", "code": utils.CodeInvalidArgument, "message": "invalid json"})
				continue
			}

			switch msg.Type {
			case "start":
				if err := ctrl.Start(ctx); err != nil {
					errMsg := "failed to start call"
					var ae *utils.AppError
					if errors.As(err, &ae) && ae.Message != "" {
						errMsg = ae.Message
					}
					_ = wc.writeJSON(gin.H{"type": "error", "code": utils.CodeOf(err), "message": errMsg})
				}
			case "stop":
				ctrl.Stop()
			default:
				_ = wc.writeJSON(gin.H{"type": "error", "code": utils.CodeInvalidArgument, "message": "unknown message type"})
			}
		}
	}()

	// writer: completion signal -> client
	for {
		select {
		case <-readDone:
			return
		case res := <-ctrl.Done():
			msg := callResultMsg{
				Type:        "result",
				Success:     res.Err == nil,
				InterviewID: res.InterviewID,
				FeedbackID:  res.FeedbackID,
			}
			if res.Err != nil {
				msg.Message = "post-call generation failed"
			}
			_ = wc.writeJSON(msg)
			h.relay(ctx, msg)
			return
		}
	}
}

// relay mirrors surface updates onto Redis pub/sub so dashboards and other
// tabs can observe a call without holding the socket.
func (h *CallWSHandler) relay(ctx context.Context, msg any) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = h.Redis.Publish(ctx, "call:events", string(b)).Err()
}
