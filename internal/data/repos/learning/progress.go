package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type ProgressRepo interface {
	Create(dbc dbctx.Context, records []*types.Progress) ([]*types.Progress, error)
	// AnsweredQuestionIDs returns the distinct question ids userID has a record for in topic.
	AnsweredQuestionIDs(dbc dbctx.Context, userID uuid.UUID, topic string) ([]string, error)
	// ListByUser returns newest first; an empty topic matches every topic.
	ListByUser(dbc dbctx.Context, userID uuid.UUID, topic string, limit int) ([]*types.Progress, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (r *progressRepo) Create(dbc dbctx.Context, records []*types.Progress) ([]*types.Progress, error) {
	if len(records) == 0 {
		return []*types.Progress{}, nil
	}
	if err := dbc.Conn(r.db).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *progressRepo) AnsweredQuestionIDs(dbc dbctx.Context, userID uuid.UUID, topic string) ([]string, error) {
	var ids []string
	if err := dbc.Conn(r.db).
		Model(&types.Progress{}).
		Where("user_id = ? AND topic = ? AND question_id <> ''", userID, learning.NormalizeTopic(topic)).
		Distinct().
		Pluck("question_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *progressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, topic string, limit int) ([]*types.Progress, error) {
	q := dbc.Conn(r.db).Where("user_id = ?", userID)
	if t := learning.NormalizeTopic(topic); t != "" {
		q = q.Where("topic = ?", t)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*types.Progress
	if err := q.Order("answered_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
