package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voxprep/voxprep/internal/cache"
	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/providers/llm"
	mongorepo "github.com/voxprep/voxprep/internal/repositories/mongo"
	pgrepo "github.com/voxprep/voxprep/internal/repositories/postgres"
	"github.com/voxprep/voxprep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/datatypes"
)

const (
	questionSystemInstruction = "You generate interview questions in JSON array format only."
	feedbackSystemInstruction = "You are a professional interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories."

	// Substituted when the model's question payload cannot be parsed; the
	// interview must always end up usable.
	fallbackQuestion = "Tell me about yourself."
)

type QuestionRequest struct {
	InterviewID string
	UserID      string
	Role        string
	Level       string
	TechStack   []string
	Amount      int
	Focus       string
}

// GenerationService is the post-call pipeline: build a prompt, make a single
// model request, parse the structured response, persist the canonical result.
type GenerationService interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) error
	CompleteGenerated(ctx context.Context, interviewID, userID string, transcript []models.Turn) error
	ScoreFeedback(ctx context.Context, interviewID, userID, feedbackID string, transcript []models.Turn) (string, error)
}

type generationService struct {
	interviews mongorepo.InterviewRepository
	feedback   mongorepo.FeedbackRepository
	archives   pgrepo.ArchiveRepository // optional
	llm        llm.Provider
	prompts    *PromptBuilder
	cache      cache.Cache // optional
	log        *logrus.Logger
}

func NewGenerationService(
	interviews mongorepo.InterviewRepository,
	feedback mongorepo.FeedbackRepository,
	archives pgrepo.ArchiveRepository,
	provider llm.Provider,
	c cache.Cache,
	log *logrus.Logger,
) GenerationService {
	if log == nil {
		log = logrus.New()
	}
	return &generationService{
		interviews: interviews,
		feedback:   feedback,
		archives:   archives,
		llm:        provider,
		prompts:    NewPromptBuilder(),
		cache:      c,
		log:        log,
	}
}

// GenerateQuestions asks the model for a question list and writes it back
// onto the same interview document established at call start. A parse failure
// degrades to the fallback question; the interview is finalized either way.
func (s *generationService) GenerateQuestions(ctx context.Context, req QuestionRequest) error {
	const op = "GenerationService.GenerateQuestions"

	if req.InterviewID == "" || req.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview_id and user_id are required", nil)
	}
	if req.Role == "" || len(req.TechStack) == 0 || req.Amount <= 0 {
		return utils.E(utils.CodeInvalidArgument, op, "role, techstack, and amount are required", nil)
	}

	fields := bson.M{
		"role":      req.Role,
		"techstack": req.TechStack,
		"amount":    req.Amount,
	}
	if req.Level != "" {
		fields["level"] = req.Level
	}
	if req.Focus != "" {
		fields["focus"] = req.Focus
	}
	if err := s.interviews.UpdateDetails(ctx, req.InterviewID, fields); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update interview details", err)
	}

	prompt := s.prompts.BuildQuestionPrompt(req.Amount, req.Role, req.Level, req.TechStack, req.Focus)
	text, err := s.llm.Generate(ctx, questionSystemInstruction, prompt)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "question generation request failed", err)
	}

	questions, ok := parseQuestionList(text)
	if !ok {
		s.log.WithField("interview_id", req.InterviewID).
			Warn("unparsable question payload, using fallback question")
		questions = []string{fallbackQuestion}
	}

	if err := s.interviews.SetQuestions(ctx, req.InterviewID, questions, randomCover()); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save questions", err)
	}
	s.invalidateInterview(ctx, req.InterviewID)

	s.archiveInterview(ctx, req, questions)
	return nil
}

// archiveInterview mirrors the finalized interview into Postgres.
// Best-effort: the Mongo document is canonical, failures are only logged.
func (s *generationService) archiveInterview(ctx context.Context, req QuestionRequest, questions []string) {
	if s.archives == nil {
		return
	}

	qjson, err := json.Marshal(questions)
	if err != nil {
		return
	}
	row := &models.InterviewArchive{
		InterviewID: req.InterviewID,
		UserID:      req.UserID,
		Role:        req.Role,
		Level:       req.Level,
		TechStack:   req.TechStack,
		Questions:   datatypes.JSON(qjson),
		FinalizedAt: time.Now().UTC(),
	}
	if err := s.archives.UpsertArchive(ctx, row); err != nil {
		s.log.WithError(err).WithField("interview_id", req.InterviewID).
			Warn("failed to archive interview")
	}
}

// CompleteGenerated saves the finished transcript of a generate-mode call and
// marks the call completed.
func (s *generationService) CompleteGenerated(ctx context.Context, interviewID, userID string, transcript []models.Turn) error {
	const op = "GenerationService.CompleteGenerated"

	if interviewID == "" || userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview_id and user_id are required", nil)
	}
	if len(transcript) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "transcript is empty", nil)
	}

	if err := s.interviews.SaveTranscript(ctx, interviewID, transcript); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to save transcript", err)
	}
	s.invalidateInterview(ctx, interviewID)

	s.logTranscript(ctx, interviewID, userID, transcript)
	return nil
}

// logTranscript mirrors finalized turns into Postgres. Best-effort.
func (s *generationService) logTranscript(ctx context.Context, interviewID, userID string, transcript []models.Turn) {
	if s.archives == nil {
		return
	}

	now := time.Now().UTC()
	rows := make([]models.TranscriptLog, 0, len(transcript))
	for i, t := range transcript {
		rows = append(rows, models.TranscriptLog{
			ID:          uuid.NewString(),
			UserID:      userID,
			InterviewID: interviewID,
			Speaker:     string(t.Speaker),
			Content:     t.Text,
			Position:    i,
			Timestamp:   now,
			Metadata:    datatypes.JSON(`{"source":"voice_call"}`),
		})
	}
	if err := s.archives.InsertTranscriptLogs(ctx, rows); err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).
			Warn("failed to mirror transcript logs")
	}
}

// ScoreFeedback evaluates an interview-mode transcript against the fixed
// rubric. An empty or unparsable model response is fatal here: a feedback
// score cannot be synthesized. A supplied feedbackID overwrites that exact
// record; otherwise a new one is created and its id returned.
func (s *generationService) ScoreFeedback(ctx context.Context, interviewID, userID, feedbackID string, transcript []models.Turn) (string, error) {
	const op = "GenerationService.ScoreFeedback"

	if interviewID == "" || userID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "interview_id and user_id are required", nil)
	}
	if len(transcript) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "transcript is empty", nil)
	}

	prompt := s.prompts.BuildFeedbackPrompt(transcript)
	text, err := s.llm.Generate(ctx, feedbackSystemInstruction, prompt)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "feedback request failed", err)
	}

	fb, ok := parseFeedbackPayload(text)
	if !ok {
		return "", utils.E(utils.CodeInternal, op, "model response was not a valid feedback object", nil)
	}

	fb.InterviewID = interviewID
	fb.UserID = userID
	fb.CreatedAt = time.Now().UTC()

	if feedbackID != "" {
		if err := s.feedback.Replace(ctx, feedbackID, fb); err != nil {
			return "", utils.E(utils.CodeInternal, op, "failed to overwrite feedback", err)
		}
	} else {
		fb.FeedbackID = uuid.NewString()
		if err := s.feedback.Create(ctx, fb); err != nil {
			return "", utils.E(utils.CodeInternal, op, "failed to create feedback", err)
		}
		feedbackID = fb.FeedbackID
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, "feedback:"+interviewID+":"+userID)
	}
	return feedbackID, nil
}

func (s *generationService) invalidateInterview(ctx context.Context, interviewID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, "interview:"+interviewID)
	}
}
