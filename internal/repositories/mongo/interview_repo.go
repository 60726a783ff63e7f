package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InterviewRepository interface {
	Create(ctx context.Context, iv *models.Interview) error
	GetByInterviewID(ctx context.Context, interviewID string) (*models.Interview, error)
	UpdateDetails(ctx context.Context, interviewID string, fields bson.M) error
	SetQuestions(ctx context.Context, interviewID string, questions []string, coverImage string) error
	SaveTranscript(ctx context.Context, interviewID string, transcript []models.Turn) error
	SetRecording(ctx context.Context, interviewID, recordingPath string) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error)
	ListLatestFinalized(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error)
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interviews")}
}

func (r *interviewRepo) Create(ctx context.Context, iv *models.Interview) error {
	now := time.Now().UTC()
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = now
	}
	iv.UpdatedAt = now
	if iv.TechStack == nil {
		iv.TechStack = []string{}
	}
	if iv.Questions == nil {
		iv.Questions = []string{}
	}
	if iv.Transcript == nil {
		iv.Transcript = []models.Turn{}
	}
	_, err := r.col.InsertOne(ctx, iv)
	return err
}

func (r *interviewRepo) GetByInterviewID(ctx context.Context, interviewID string) (*models.Interview, error) {
	var iv models.Interview
	err := r.col.FindOne(ctx, bson.M{"interview_id": interviewID}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &iv, err
}

// UpdateDetails applies a partial $set of caller-chosen fields (role, level,
// techstack, amount, mode). It never touches questions or transcript.
func (r *interviewRepo) UpdateDetails(ctx context.Context, interviewID string, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) SetQuestions(ctx context.Context, interviewID string, questions []string, coverImage string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": bson.M{
			"questions":   questions,
			"finalized":   true,
			"cover_image": coverImage,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) SaveTranscript(ctx context.Context, interviewID string, transcript []models.Turn) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": bson.M{
			"transcript":     transcript,
			"call_completed": true,
			"updated_at":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) SetRecording(ctx context.Context, interviewID, recordingPath string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": bson.M{
			"recording_path": recordingPath,
			"updated_at":     time.Now().UTC(),
		}},
	)
	return err
}

func (r *interviewRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Interview
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interviewRepo) ListLatestFinalized(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{
			"finalized": true,
			"user_id":   bson.M{"$ne": excludeUserID},
		},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Interview
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
