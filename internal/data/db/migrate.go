package db

import (
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + auth
		&types.User{},
		&types.UserToken{},

		// Quiz content + answer history
		&types.Question{},
		&types.Progress{},
	)
}
