package services

import (
	"context"

	"github.com/voxprep/voxprep/internal/models"
	pgrepo "github.com/voxprep/voxprep/internal/repositories/postgres"
	"github.com/voxprep/voxprep/internal/utils"
)

// ArchiveService reads the relational mirrors: per-turn transcript logs and
// finalized interview archives.
type ArchiveService interface {
	ListTranscriptLogs(ctx context.Context, userID, interviewID string, limit int) ([]models.TranscriptLog, error)
	ListArchivesByUser(ctx context.Context, userID string, limit int) ([]models.InterviewArchive, error)
}

type archiveService struct {
	archives pgrepo.ArchiveRepository
}

func NewArchiveService(archives pgrepo.ArchiveRepository) ArchiveService {
	return &archiveService{archives: archives}
}

func (s *archiveService) ListTranscriptLogs(ctx context.Context, userID, interviewID string, limit int) ([]models.TranscriptLog, error) {
	const op = "ArchiveService.ListTranscriptLogs"

	if userID == "" || interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and interview_id are required", nil)
	}
	rows, err := s.archives.ListTranscriptLogs(ctx, userID, interviewID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list transcript logs", err)
	}
	return rows, nil
}

func (s *archiveService) ListArchivesByUser(ctx context.Context, userID string, limit int) ([]models.InterviewArchive, error) {
	const op = "ArchiveService.ListArchivesByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.archives.ListArchivesByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list archives", err)
	}
	return rows, nil
}
