package learning

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeFillInTheBlanks QuestionType = "fill-in-the-blanks"
	QuestionTypeMultipleChoice  QuestionType = "multiple-choice"
	QuestionTypeVisual          QuestionType = "visual"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeFillInTheBlanks, QuestionTypeMultipleChoice, QuestionTypeVisual:
		return true
	}
	return false
}

// Option is the canonical answer option shape.
type Option struct {
	Value       string `json:"value"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// UnmarshalJSON also accepts a bare string, the pre-structured storage form.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Option{Value: s}
		return nil
	}
	var raw struct {
		Value       string `json:"value"`
		Description string `json:"description"`
		ImageURL    string `json:"imageUrl"`
		ImageURLAlt string `json:"image_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Option{Value: raw.Value, Description: raw.Description, ImageURL: raw.ImageURL}
	if o.ImageURL == "" {
		o.ImageURL = raw.ImageURLAlt
	}
	return nil
}

type Question struct {
	ID            uuid.UUID                   `gorm:"type:varchar(36);primaryKey" json:"-"`
	ExternalID    string                      `gorm:"column:external_id;not null;size:128;uniqueIndex:idx_question_topic_external" json:"id"`
	Topic         string                      `gorm:"column:topic;not null;size:64;index;uniqueIndex:idx_question_topic_external" json:"topic"`
	Type          QuestionType                `gorm:"column:type;not null;size:32" json:"type"`
	Prompt        string                      `gorm:"column:prompt;not null" json:"question"`
	Options       datatypes.JSONSlice[Option] `gorm:"column:options" json:"options"`
	CorrectAnswer string                      `gorm:"column:correct_answer;not null" json:"correctAnswer"`
	Feedback      string                      `gorm:"column:feedback" json:"feedback"`
	CreatedAt     time.Time                   `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt     time.Time                   `gorm:"not null;autoUpdateTime" json:"-"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.Topic = NormalizeTopic(q.Topic)
	return nil
}

// NormalizeTopic is the single topic comparison key.
func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
