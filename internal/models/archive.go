package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// TranscriptLog mirrors one finalized turn into Postgres for durable audit and
// offline analysis; the Mongo interview document stays the canonical record.
type TranscriptLog struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	InterviewID string         `gorm:"column:interview_id;type:uuid;index" json:"interview_id"`
	Speaker     string         `gorm:"column:speaker;type:text" json:"speaker"` // "user" | "assistant" | "system"
	Content     string         `gorm:"column:content;type:text" json:"content"`
	Position    int            `gorm:"column:position" json:"position"` // order within the transcript
	Timestamp   time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (TranscriptLog) TableName() string { return "transcript_logs" }

// InterviewArchive is the relational mirror of a finalized interview.
type InterviewArchive struct {
	InterviewID string         `gorm:"column:interview_id;type:uuid;primaryKey" json:"interview_id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Role        string         `gorm:"column:role;type:text" json:"role"`
	Level       string         `gorm:"column:level;type:text" json:"level"`
	TechStack   pq.StringArray `gorm:"column:techstack;type:text[]" json:"techstack"`
	Questions   datatypes.JSON `gorm:"column:questions;type:jsonb" json:"questions"`
	FinalizedAt time.Time      `gorm:"column:finalized_at;type:timestamptz" json:"finalized_at"`
}

func (InterviewArchive) TableName() string { return "interview_archives" }
