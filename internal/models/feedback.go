package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scoring rubric. Exactly these five categories, no others.
var FeedbackCategories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem-Solving",
	"Cultural & Role Fit",
	"Confidence & Clarity",
}

// Feedback is the scored evaluation of one interview transcript. Written at
// most once per (interview, feedback id) pair: an existing id is overwritten
// in place, otherwise a new document is created.
type Feedback struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FeedbackID  string             `bson:"feedback_id" json:"feedback_id"` // uuid v4
	InterviewID string             `bson:"interview_id" json:"interview_id"`
	UserID      string             `bson:"user_id" json:"user_id"`

	TotalScore          int            `bson:"total_score" json:"total_score"` // 0-100
	CategoryScores      map[string]int `bson:"category_scores" json:"category_scores"`
	Strengths           []string       `bson:"strengths" json:"strengths"`
	AreasForImprovement []string       `bson:"areas_for_improvement" json:"areas_for_improvement"`
	FinalAssessment     string         `bson:"final_assessment" json:"final_assessment"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
