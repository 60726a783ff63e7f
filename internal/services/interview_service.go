package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/voxprep/voxprep/internal/cache"
	"github.com/voxprep/voxprep/internal/models"
	mongorepo "github.com/voxprep/voxprep/internal/repositories/mongo"
	"github.com/voxprep/voxprep/internal/utils"
)

const interviewCacheTTL = 5 * time.Minute

type InterviewService interface {
	CreateDraft(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, interviewID string) (*models.Interview, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error)
	ListLatest(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error)
	GetFeedback(ctx context.Context, interviewID, userID string) (*models.Feedback, error)
}

type interviewService struct {
	interviews mongorepo.InterviewRepository
	feedback   mongorepo.FeedbackRepository
	cache      cache.Cache // optional
}

func NewInterviewService(interviews mongorepo.InterviewRepository, feedback mongorepo.FeedbackRepository, c cache.Cache) InterviewService {
	return &interviewService{interviews: interviews, feedback: feedback, cache: c}
}

// CreateDraft inserts the empty interview document a generate-mode call is
// keyed by. All later writes update this same document.
func (s *interviewService) CreateDraft(ctx context.Context, userID string) (string, error) {
	const op = "InterviewService.CreateDraft"

	if userID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	iv := &models.Interview{
		InterviewID: uuid.NewString(),
		UserID:      userID,
		Mode:        models.ModeGenerate,
		Level:       "unknown",
		Focus:       "mixed",
		TechStack:   []string{},
		Questions:   []string{},
		Transcript:  []models.Turn{},
	}
	if err := s.interviews.Create(ctx, iv); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	return iv.InterviewID, nil
}

func (s *interviewService) Get(ctx context.Context, interviewID string) (*models.Interview, error) {
	const op = "InterviewService.Get"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}

	key := "interview:" + interviewID
	if s.cache != nil {
		var cached models.Interview
		if hit, _ := s.cache.GetJSON(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	iv, err := s.interviews.GetByInterviewID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, iv, interviewCacheTTL)
	}
	return iv, nil
}

func (s *interviewService) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	const op = "InterviewService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.interviews.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, nil
}

func (s *interviewService) ListLatest(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error) {
	const op = "InterviewService.ListLatest"

	out, err := s.interviews.ListLatestFinalized(ctx, excludeUserID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list latest interviews", err)
	}
	return out, nil
}

func (s *interviewService) GetFeedback(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	const op = "InterviewService.GetFeedback"

	if interviewID == "" || userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id and user_id are required", nil)
	}

	key := "feedback:" + interviewID + ":" + userID
	if s.cache != nil {
		var cached models.Feedback
		if hit, _ := s.cache.GetJSON(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	fb, err := s.feedback.GetByInterviewAndUser(ctx, interviewID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "feedback not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get feedback", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, fb, interviewCacheTTL)
	}
	return fb, nil
}
