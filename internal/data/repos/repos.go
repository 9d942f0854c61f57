package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/data/repos/auth"
	"github.com/yungbote/sparkquest-backend/internal/data/repos/learning"
	"github.com/yungbote/sparkquest-backend/internal/data/repos/user"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type QuestionRepo = learning.QuestionRepo
type ProgressRepo = learning.ProgressRepo
type TopicCount = learning.TopicCount

type RankColumn = user.RankColumn

const (
	RankByTotalXP = user.RankByTotalXP
	RankByDailyXP = user.RankByDailyXP
	RankByStreak  = user.RankByStreak
)

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }
func NewUserTokenRepo(db *gorm.DB, log *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, log)
}
func NewQuestionRepo(db *gorm.DB, log *logger.Logger) QuestionRepo {
	return learning.NewQuestionRepo(db, log)
}
func NewProgressRepo(db *gorm.DB, log *logger.Logger) ProgressRepo {
	return learning.NewProgressRepo(db, log)
}
