package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusPending     = "pending"
	RunStatusCompleted   = "completed"
	RunStatusFailed      = "failed"
	RunStatusRegenerated = "regenerated"
)

// GradingRun records one AI grading attempt for a submission.
type GradingRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID   string         `gorm:"type:varchar(100);index" json:"submission_id"`
	RubricID       string         `gorm:"type:varchar(100)" json:"rubric_id"`
	Provider       string         `gorm:"type:varchar(50)" json:"provider"`
	Status         string         `gorm:"type:varchar(50)" json:"status"` // pending, completed, failed, regenerated
	Rubric         datatypes.JSON `gorm:"type:jsonb" json:"rubric"`
	AttachmentName string         `gorm:"type:varchar(255)" json:"attachment_name"`
	AttachmentURL  string         `gorm:"type:text" json:"attachment_url"`
	Result         datatypes.JSON `gorm:"type:jsonb" json:"result"`
	AIComments     datatypes.JSON `gorm:"type:jsonb" json:"ai_comments"`
	Error          string         `gorm:"type:text" json:"error"`
	GradedAt       *time.Time     `json:"graded_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (r *GradingRun) TableName() string {
	return "grading_runs"
}

func (r *GradingRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
