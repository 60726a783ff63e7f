package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	Replace(ctx context.Context, feedbackID string, fb *models.Feedback) error
	GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*models.Feedback, error)
}

type feedbackRepo struct {
	col *mongo.Collection
}

func NewFeedbackRepo(db *mongo.Database) FeedbackRepository {
	return &feedbackRepo{col: db.Collection("feedback")}
}

// Create inserts a new feedback document; fb.FeedbackID must already be set by
// the caller (a freshly generated uuid).
func (r *feedbackRepo) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, fb)
	return err
}

// Replace overwrites the document with the given feedback id in place,
// creating it if a prior partial attempt never landed.
func (r *feedbackRepo) Replace(ctx context.Context, feedbackID string, fb *models.Feedback) error {
	fb.FeedbackID = feedbackID
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	fb.ID = primitive.NilObjectID
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"feedback_id": feedbackID},
		fb,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *feedbackRepo) GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.col.FindOne(ctx, bson.M{
		"interview_id": interviewID,
		"user_id":      userID,
	}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &fb, err
}
