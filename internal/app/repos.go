package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo
	Question  repos.QuestionRepo
	Progress  repos.ProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),
		Question:  repos.NewQuestionRepo(db, log),
		Progress:  repos.NewProgressRepo(db, log),
	}
}
