package call_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/call"
	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/providers/voice"
	"github.com/voxprep/voxprep/internal/utils"
)

type fakeEngine struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	connectErr  error
	vars        map[string]string
	handler     voice.Handler
}

func (e *fakeEngine) Connect(ctx context.Context, target string, variables map[string]string, h voice.Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connects++
	if e.connectErr != nil {
		return e.connectErr
	}
	e.vars = variables
	e.handler = h
	return nil
}

func (e *fakeEngine) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnects++
	return nil
}

func (e *fakeEngine) emit(ev voice.Event) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (e *fakeEngine) connectCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects
}

type fakeStore struct {
	id    string
	err   error
	calls int
}

func (s *fakeStore) CreateDraft(ctx context.Context, userID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func newTestController(cfg call.Config, engine *fakeEngine, store *fakeStore, pipe *fakePipeline) *call.Controller {
	d := &call.Dispatcher{Pipeline: pipe, Logger: quietLogger()}
	return call.NewController(cfg, engine, store, d, quietLogger())
}

func waitResult(t *testing.T, c *call.Controller) call.Result {
	t.Helper()
	select {
	case res := <-c.Done():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion signal")
		return call.Result{}
	}
}

func TestStartGenerateCreatesDraftBeforeConnect(t *testing.T) {
	engine := &fakeEngine{}
	store := &fakeStore{id: "iv-draft"}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, store, &fakePipeline{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected one draft creation, got %d", store.calls)
	}
	if c.InterviewID() != "iv-draft" {
		t.Fatalf("controller not keyed by draft id, got %q", c.InterviewID())
	}
	if c.State() != call.StateConnecting {
		t.Fatalf("expected connecting, got %s", c.State())
	}

	engine.emit(voice.Event{Type: voice.EventCallStart})
	if c.State() != call.StateActive {
		t.Fatalf("call-start must activate, got %s", c.State())
	}
}

func TestStartRequiresUserID(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(call.Config{Mode: models.ModeGenerate}, engine, &fakeStore{id: "x"}, &fakePipeline{})

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if utils.CodeOf(err) != utils.CodeInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if c.State() != call.StateIdle {
		t.Fatalf("validation failure must not change state, got %s", c.State())
	}
	if engine.connectCount() != 0 {
		t.Fatal("engine must not be invoked on validation failure")
	}
}

func TestStartInterviewRequiresInterviewID(t *testing.T) {
	c := newTestController(call.Config{Mode: models.ModeInterview, UserID: "u-1"}, &fakeEngine{}, &fakeStore{}, &fakePipeline{})

	if err := c.Start(context.Background()); utils.CodeOf(err) != utils.CodeInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestDuplicateStartIsNoOp(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, &fakePipeline{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start err: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start err: %v", err)
	}
	if engine.connectCount() != 1 {
		t.Fatalf("expected exactly one connect, got %d", engine.connectCount())
	}
}

func TestDraftFailureRevertsToIdle(t *testing.T) {
	engine := &fakeEngine{}
	store := &fakeStore{err: errors.New("mongo down")}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, store, &fakePipeline{})

	err := c.Start(context.Background())
	if utils.CodeOf(err) != utils.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if c.State() != call.StateIdle {
		t.Fatalf("expected revert to idle, got %s", c.State())
	}
	if engine.connectCount() != 0 {
		t.Fatal("engine must never be invoked when draft creation fails")
	}
}

func TestConnectFailureRevertsToIdle(t *testing.T) {
	engine := &fakeEngine{connectErr: errors.New("gateway refused")}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, &fakePipeline{})

	err := c.Start(context.Background())
	if utils.CodeOf(err) != utils.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if c.State() != call.StateIdle {
		t.Fatalf("expected revert to idle, got %s", c.State())
	}
}

func TestInterviewModeForwardsQuestions(t *testing.T) {
	engine := &fakeEngine{}
	cfg := call.Config{
		Mode:        models.ModeInterview,
		UserID:      "u-1",
		InterviewID: "iv-1",
		Questions:   []string{"Q one", "Q two"},
	}
	c := newTestController(cfg, engine, &fakeStore{}, &fakePipeline{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if got := engine.vars["questions"]; got != "- Q one\n- Q two" {
		t.Fatalf("questions not formatted for the agent: %q", got)
	}
}

func TestStopFinishesAndDispatchesOnce(t *testing.T) {
	engine := &fakeEngine{}
	pipe := &fakePipeline{}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, pipe)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})
	engine.emit(voice.Event{
		Type: voice.EventMessage, MessageType: "transcript",
		TranscriptType: voice.TranscriptFinal, Role: "user", Transcript: "hello",
	})

	c.Stop()
	if c.State() != call.StateFinished {
		t.Fatalf("Stop must finish immediately, got %s", c.State())
	}

	res := waitResult(t, c)
	if !res.Dispatched || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.InterviewID != "iv-1" {
		t.Fatalf("wrong interview id: %q", res.InterviewID)
	}
	if complete, _ := pipe.calls(); complete != 1 {
		t.Fatalf("expected one transcript save, got %d", complete)
	}
}

func TestCallEndThenStopDispatchesOnlyOnce(t *testing.T) {
	engine := &fakeEngine{}
	pipe := &fakePipeline{}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, pipe)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})
	engine.emit(voice.Event{
		Type: voice.EventMessage, MessageType: "transcript",
		TranscriptType: voice.TranscriptFinal, Role: "user", Transcript: "hello",
	})

	engine.emit(voice.Event{Type: voice.EventCallEnd})
	c.Stop() // user mashing the end button after the engine already hung up

	res := waitResult(t, c)
	if !res.Dispatched {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Give a hypothetical second dispatch time to fire, then verify it didn't.
	select {
	case extra := <-c.Done():
		t.Fatalf("second completion signal delivered: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
	if complete, _ := pipe.calls(); complete != 1 {
		t.Fatalf("dispatch must run exactly once, got %d", complete)
	}
}

func TestEmptyCallSkipsPipeline(t *testing.T) {
	engine := &fakeEngine{}
	pipe := &fakePipeline{}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, pipe)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})
	engine.emit(voice.Event{
		Type: voice.EventMessage, MessageType: "transcript",
		TranscriptType: voice.TranscriptPartial, Role: "user", Transcript: "never finis",
	})
	c.Stop()

	res := waitResult(t, c)
	if res.Dispatched {
		t.Fatalf("empty call must not dispatch: %+v", res)
	}
	if complete, score := pipe.calls(); complete != 0 || score != 0 {
		t.Fatalf("pipeline invoked for empty call: complete=%d score=%d", complete, score)
	}
}

func TestInterviewModeScoresOnFinish(t *testing.T) {
	engine := &fakeEngine{}
	pipe := &fakePipeline{scoreFBIDOut: "fb-new"}
	cfg := call.Config{
		Mode:        models.ModeInterview,
		UserID:      "u-1",
		InterviewID: "iv-1",
		Questions:   []string{"Q"},
		FeedbackID:  "fb-old",
	}
	c := newTestController(cfg, engine, &fakeStore{}, pipe)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})
	engine.emit(voice.Event{
		Type: voice.EventMessage, MessageType: "transcript",
		TranscriptType: voice.TranscriptFinal, Role: "assistant", Transcript: "Q",
	})
	engine.emit(voice.Event{Type: voice.EventCallEnd, RecordingURL: "https://cdn.example/rec.wav"})

	res := waitResult(t, c)
	if res.FeedbackID != "fb-new" {
		t.Fatalf("expected new feedback id, got %q", res.FeedbackID)
	}
	if pipe.scoreFBIDIn != "fb-old" {
		t.Fatalf("prior feedback id not forwarded, got %q", pipe.scoreFBIDIn)
	}
}

func TestSpeechEventsToggleSpeaking(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(call.Config{Mode: models.ModeGenerate, UserID: "u-1"}, engine, &fakeStore{id: "iv-1"}, &fakePipeline{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})

	engine.emit(voice.Event{Type: voice.EventSpeechStart})
	if !c.Speaking() {
		t.Fatal("expected speaking after speech-start")
	}
	engine.emit(voice.Event{Type: voice.EventSpeechEnd})
	if c.Speaking() {
		t.Fatal("expected not speaking after speech-end")
	}
}

func TestUpdatesPushedOnTransitions(t *testing.T) {
	engine := &fakeEngine{}
	var mu sync.Mutex
	var states []call.State
	cfg := call.Config{
		Mode:   models.ModeGenerate,
		UserID: "u-1",
		OnUpdate: func(u call.Update) {
			mu.Lock()
			states = append(states, u.State)
			mu.Unlock()
		},
	}
	c := newTestController(cfg, engine, &fakeStore{id: "iv-1"}, &fakePipeline{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	engine.emit(voice.Event{Type: voice.EventCallStart})
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 3 {
		t.Fatalf("expected connecting/active/finished updates, got %v", states)
	}
	if states[0] != call.StateConnecting {
		t.Fatalf("first update must be connecting, got %s", states[0])
	}
	if states[len(states)-1] != call.StateFinished {
		t.Fatalf("last update must be finished, got %s", states[len(states)-1])
	}
}
