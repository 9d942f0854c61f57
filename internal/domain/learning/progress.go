package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProgressKind string

const (
	ProgressKindAnswer ProgressKind = "answer"
	ProgressKindLesson ProgressKind = "lesson"
)

// GeneralTopic tags progress that is not tied to a quiz topic.
const GeneralTopic = "general"

// Progress is one immutable answer event.
type Progress struct {
	ID          uuid.UUID    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      uuid.UUID    `gorm:"type:varchar(36);not null;index:idx_progress_user_topic" json:"userId"`
	Topic       string       `gorm:"column:topic;not null;size:64;index:idx_progress_user_topic" json:"topic"`
	QuestionID  string       `gorm:"column:question_id;size:128;index" json:"questionId"`
	Kind        ProgressKind `gorm:"column:kind;not null;size:16" json:"kind"`
	XP          int          `gorm:"column:xp;not null" json:"xp"`
	Correctness Correctness  `gorm:"column:correctness;not null;size:16" json:"isCorrect"`
	UserAnswer  string       `gorm:"column:user_answer" json:"userAnswer"`
	AnsweredAt  time.Time    `gorm:"column:answered_at;not null;index" json:"timestamp"`
	CreatedAt   time.Time    `gorm:"not null;autoCreateTime" json:"-"`
}

func (Progress) TableName() string { return "progress" }

func (p *Progress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Topic = NormalizeTopic(p.Topic)
	return nil
}
