package learning

import (
	"gorm.io/gorm"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

type QuestionRepo interface {
	Create(dbc dbctx.Context, questions []*types.Question) ([]*types.Question, error)
	ListByTopic(dbc dbctx.Context, topic string) ([]*types.Question, error)
	CountByTopic(dbc dbctx.Context, topic string) (int64, error)
	TopicCounts(dbc dbctx.Context) ([]TopicCount, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) Create(dbc dbctx.Context, questions []*types.Question) ([]*types.Question, error) {
	if len(questions) == 0 {
		return []*types.Question{}, nil
	}
	if err := dbc.Conn(r.db).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) ListByTopic(dbc dbctx.Context, topic string) ([]*types.Question, error) {
	var results []*types.Question
	if err := dbc.Conn(r.db).
		Where("topic = ?", learning.NormalizeTopic(topic)).
		Order("external_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) CountByTopic(dbc dbctx.Context, topic string) (int64, error) {
	var count int64
	if err := dbc.Conn(r.db).
		Model(&types.Question{}).
		Where("topic = ?", learning.NormalizeTopic(topic)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *questionRepo) TopicCounts(dbc dbctx.Context) ([]TopicCount, error) {
	var results []TopicCount
	if err := dbc.Conn(r.db).
		Model(&types.Question{}).
		Select("topic, COUNT(*) AS count").
		Group("topic").
		Order("topic ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
