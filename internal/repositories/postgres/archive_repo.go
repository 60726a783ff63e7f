package postgres

import (
	"context"

	"github.com/voxprep/voxprep/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArchiveRepository interface {
	InsertTranscriptLogs(ctx context.Context, logs []models.TranscriptLog) error
	UpsertArchive(ctx context.Context, row *models.InterviewArchive) error
	ListTranscriptLogs(ctx context.Context, userID, interviewID string, limit int) ([]models.TranscriptLog, error)
	ListArchivesByUser(ctx context.Context, userID string, limit int) ([]models.InterviewArchive, error)
}

type archiveRepo struct {
	db *gorm.DB
}

func NewArchiveRepo(db *gorm.DB) ArchiveRepository {
	return &archiveRepo{db: db}
}

func (r *archiveRepo) InsertTranscriptLogs(ctx context.Context, logs []models.TranscriptLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

func (r *archiveRepo) UpsertArchive(ctx context.Context, row *models.InterviewArchive) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "interview_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (r *archiveRepo) ListTranscriptLogs(ctx context.Context, userID, interviewID string, limit int) ([]models.TranscriptLog, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []models.TranscriptLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND interview_id = ?", userID, interviewID).
		Order("position ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *archiveRepo) ListArchivesByUser(ctx context.Context, userID string, limit int) ([]models.InterviewArchive, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.InterviewArchive
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("finalized_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
