package call

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/providers/voice"
	"github.com/voxprep/voxprep/internal/utils"
)

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// SessionStore creates the interview document a generate-mode call is keyed
// by. The document must exist before the engine is ever invoked.
type SessionStore interface {
	CreateDraft(ctx context.Context, userID string) (string, error)
}

// Update is a snapshot pushed to the hosting surface on every observable
// change: lifecycle transitions, partial transcripts, speaking toggles.
type Update struct {
	State     State
	LastHeard string
	Speaking  bool
}

type Config struct {
	Mode     models.Mode
	UserID   string
	UserName string

	// InterviewID and Questions are pre-supplied in interview mode; in
	// generate mode the controller creates the interview itself.
	InterviewID string
	Questions   []string
	FeedbackID  string

	// Target names the agent/workflow the engine should run.
	Target string

	// OnUpdate, when set, receives state snapshots. Called outside the
	// controller lock.
	OnUpdate func(Update)

	// DispatchTimeout bounds the post-call generation work. Zero means the
	// default of two minutes.
	DispatchTimeout time.Duration
}

// Controller owns one voice call's lifecycle: Idle -> Connecting -> Active ->
// Finished, no backward transitions. Exactly one controller is active per
// session surface and it must not share its engine with another controller.
type Controller struct {
	cfg        Config
	engine     voice.Engine
	store      SessionStore
	dispatcher *Dispatcher
	log        *logrus.Entry

	mu          sync.Mutex
	state       State
	starting    bool
	speaking    bool
	dispatched  bool
	closed      bool
	interviewID string
	recording   string

	agg  *TranscriptAggregator
	done chan Result
}

func NewController(cfg Config, engine voice.Engine, store SessionStore, dispatcher *Dispatcher, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		cfg:        cfg,
		engine:     engine,
		store:      store,
		dispatcher: dispatcher,
		log: log.WithFields(logrus.Fields{
			"component": "call-controller",
			"mode":      cfg.Mode,
			"user_id":   cfg.UserID,
		}),
		interviewID: cfg.InterviewID,
		agg:         NewTranscriptAggregator(),
		done:        make(chan Result, 1),
	}
}

// Done delivers the single completion signal after the Finished transition's
// post-call action has run (or been skipped for an empty call).
func (c *Controller) Done() <-chan Result { return c.done }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

func (c *Controller) InterviewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interviewID
}

func (c *Controller) Transcript() []models.Turn { return c.agg.Turns() }

// Start brings the call up. Duplicate invocations while one is in flight are
// silent no-ops; a missing user id fails validation with no state change.
func (c *Controller) Start(ctx context.Context) error {
	const op = "CallController.Start"

	if c.cfg.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}
	if c.cfg.Mode == models.ModeInterview && c.cfg.InterviewID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview id is required in interview mode", nil)
	}

	c.mu.Lock()
	if c.starting || c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.state = StateConnecting
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	vars := map[string]string{
		"username": c.cfg.UserName,
		"userid":   c.cfg.UserID,
	}

	if c.cfg.Mode == models.ModeGenerate {
		// Create the interview first so the whole call is keyed by one
		// stable id; the engine is never invoked when this fails.
		id, err := c.store.CreateDraft(ctx, c.cfg.UserID)
		if err != nil {
			c.revertToIdle()
			return utils.E(utils.CodeUnavailable, op, "failed to create interview", err)
		}
		c.mu.Lock()
		c.interviewID = id
		c.mu.Unlock()
	} else {
		vars["questions"] = formatQuestions(c.cfg.Questions)
	}

	if err := c.engine.Connect(ctx, c.cfg.Target, vars, c.handleEvent); err != nil {
		c.revertToIdle()
		return utils.E(utils.CodeUnavailable, op, "voice engine connect failed", err)
	}
	return nil
}

func formatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}

func (c *Controller) revertToIdle() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.notify()
}

// handleEvent processes engine callbacks serially. Errors here are absorbed:
// the lifecycle state is the single source of truth for what happens next.
func (c *Controller) handleEvent(ev voice.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case voice.EventCallStart:
		if c.state == StateConnecting {
			c.state = StateActive
		}

	case voice.EventCallEnd:
		if ev.RecordingURL != "" {
			c.recording = ev.RecordingURL
		}
		c.finishLocked()

	case voice.EventMessage:
		if ev.MessageType == "transcript" {
			if ev.TranscriptType == voice.TranscriptFinal {
				c.agg.OnFinal(models.Speaker(ev.Role), ev.Transcript)
			} else {
				c.agg.OnPartial(ev.Transcript)
			}
		}

	case voice.EventSpeechStart:
		c.speaking = true

	case voice.EventSpeechEnd:
		c.speaking = false

	case voice.EventError:
		// An empty payload is channel-teardown noise. A real error is
		// reported but never moves the lifecycle; only call-end does.
		if ev.ErrorPayload != "" {
			c.log.WithField("payload", ev.ErrorPayload).Warn("voice engine error")
		}
	}
	c.mu.Unlock()
	c.notify()
}

// Stop disconnects and transitions to Finished immediately, without waiting
// on the engine's acknowledgment.
func (c *Controller) Stop() {
	_ = c.engine.Disconnect()

	c.mu.Lock()
	c.finishLocked()
	c.mu.Unlock()
	c.notify()
}

// finishLocked performs the terminal transition and fires the post-call
// dispatch exactly once, on the edge into Finished.
func (c *Controller) finishLocked() {
	if c.state == StateFinished {
		return
	}
	c.state = StateFinished

	if c.dispatched {
		return
	}
	c.dispatched = true

	in := DispatchInput{
		Mode:         c.cfg.Mode,
		InterviewID:  c.interviewID,
		UserID:       c.cfg.UserID,
		FeedbackID:   c.cfg.FeedbackID,
		Transcript:   c.agg.Turns(),
		RecordingURL: c.recording,
	}

	timeout := c.cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	go func() {
		// Detached from the call context: once generation is in flight it
		// runs to completion or failure.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c.done <- c.dispatcher.Dispatch(ctx, in)
	}()
}

// Close tears the controller down. Event delivery stops; the engine is only
// force-stopped when the call never reached Finished, avoiding a double stop
// the channel may reject.
func (c *Controller) Close() {
	c.mu.Lock()
	finished := c.state == StateFinished
	c.closed = true
	c.mu.Unlock()

	if !finished {
		_ = c.engine.Disconnect()
	}
}

func (c *Controller) notify() {
	if c.cfg.OnUpdate == nil {
		return
	}
	c.mu.Lock()
	u := Update{State: c.state, LastHeard: c.agg.LastHeard(), Speaking: c.speaking}
	c.mu.Unlock()
	c.cfg.OnUpdate(u)
}
