package call

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/voxprep/voxprep/internal/models"
)

// Pipeline is the post-call generation collaborator. Both entry points are
// stateless per invocation; any transport failure propagates with no partial
// write.
type Pipeline interface {
	// CompleteGenerated persists the finished transcript of a generate-mode
	// call onto the interview created at call start.
	CompleteGenerated(ctx context.Context, interviewID, userID string, transcript []models.Turn) error
	// ScoreFeedback evaluates an interview-mode transcript and returns the
	// new or overwritten feedback id.
	ScoreFeedback(ctx context.Context, interviewID, userID, feedbackID string, transcript []models.Turn) (string, error)
}

// RecordingQueue accepts best-effort archive jobs for engine call recordings.
type RecordingQueue interface {
	Enqueue(ctx context.Context, interviewID, userID, recordingURL string) error
}

// Result is the completion signal handed to the hosting surface once the
// post-call action has run (or was skipped for an empty call). Err reports a
// generation failure; it never blocks the caller from navigating away.
type Result struct {
	InterviewID string
	FeedbackID  string
	Dispatched  bool
	Err         error
}

type DispatchInput struct {
	Mode         models.Mode
	InterviewID  string
	UserID       string
	FeedbackID   string // prior partial attempt, interview mode only
	Transcript   []models.Turn
	RecordingURL string
}

// Dispatcher routes exactly one finished call to its generation action. The
// edge-into-Finished guard lives in the controller; the dispatcher itself
// guards against empty calls.
type Dispatcher struct {
	Pipeline   Pipeline
	Recordings RecordingQueue // optional
	Logger     *logrus.Logger
}

func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInput) Result {
	log := d.Logger.WithFields(logrus.Fields{
		"interview_id": in.InterviewID,
		"user_id":      in.UserID,
		"mode":         in.Mode,
	})

	// A call that produced zero final turns is an aborted session: no
	// persistence writes, signal done immediately.
	if len(in.Transcript) == 0 {
		log.Info("call ended with empty transcript, skipping generation")
		return Result{InterviewID: in.InterviewID}
	}

	if d.Recordings != nil && in.RecordingURL != "" {
		if err := d.Recordings.Enqueue(ctx, in.InterviewID, in.UserID, in.RecordingURL); err != nil {
			log.WithError(err).Warn("failed to enqueue recording archive job")
		}
	}

	switch in.Mode {
	case models.ModeInterview:
		fbID, err := d.Pipeline.ScoreFeedback(ctx, in.InterviewID, in.UserID, in.FeedbackID, in.Transcript)
		if err != nil {
			// The caller falls back to its default destination.
			log.WithError(err).Error("feedback scoring failed")
			return Result{InterviewID: in.InterviewID, Dispatched: true, Err: err}
		}
		return Result{InterviewID: in.InterviewID, FeedbackID: fbID, Dispatched: true}

	default: // generate
		if err := d.Pipeline.CompleteGenerated(ctx, in.InterviewID, in.UserID, in.Transcript); err != nil {
			log.WithError(err).Error("transcript save failed")
			return Result{InterviewID: in.InterviewID, Dispatched: true, Err: err}
		}
		return Result{InterviewID: in.InterviewID, Dispatched: true}
	}
}
