package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Mode string

const (
	ModeGenerate  Mode = "generate"  // agent collects params, questions generated after the call
	ModeInterview Mode = "interview" // agent asks pre-supplied questions, feedback scored after the call
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// Turn is one finalized utterance. Interim partials never become Turns.
type Turn struct {
	Speaker Speaker `bson:"speaker" json:"role"`
	Text    string  `bson:"text" json:"content"`
}

// Interview is one mock-interview attempt. The document is created before any
// call starts and the same document is updated end-to-end; transcript is
// append-only once a call ends, and finalized flips false->true exactly once.
type Interview struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InterviewID string             `bson:"interview_id" json:"interview_id"` // uuid v4
	UserID      string             `bson:"user_id" json:"user_id"`

	Mode      Mode     `bson:"mode" json:"mode"`
	Role      string   `bson:"role" json:"role"`
	Level     string   `bson:"level" json:"level"`
	TechStack []string `bson:"techstack" json:"techstack"`
	Amount    int      `bson:"amount" json:"amount"` // requested question count
	Focus     string   `bson:"focus" json:"focus"`   // technical | behavioural | mixed

	Questions  []string `bson:"questions" json:"questions"`
	Transcript []Turn   `bson:"transcript" json:"transcript"`
	CoverImage string   `bson:"cover_image,omitempty" json:"cover_image,omitempty"`

	RecordingPath string `bson:"recording_path,omitempty" json:"recording_path,omitempty"`

	Finalized     bool `bson:"finalized" json:"finalized"`
	CallCompleted bool `bson:"call_completed" json:"call_completed"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
