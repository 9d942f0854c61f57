package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

// RankColumn is a whitelisted leaderboard ordering.
type RankColumn string

const (
	RankByTotalXP RankColumn = "total_xp"
	RankByDailyXP RankColumn = "daily_xp"
	RankByStreak  RankColumn = "streak"
)

func (c RankColumn) Valid() bool {
	switch c {
	case RankByTotalXP, RankByDailyXP, RankByStreak:
		return true
	}
	return false
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	GetByEmails(dbc dbctx.Context, userEmails []string) ([]*types.User, error)
	EmailExists(dbc dbctx.Context, userEmail string) (bool, error)
	UpdateName(dbc dbctx.Context, userID uuid.UUID, firstName, lastName string) error
	UpdateAvatarColor(dbc dbctx.Context, userID uuid.UUID, avatarColor string) error
	UpdateAvatarFields(dbc dbctx.Context, userID uuid.UUID, bucketKey, avatarURL string) error
	// ApplyProgress writes next only if the row still carries expectedVersion.
	// It reports false when another writer got there first.
	ApplyProgress(dbc dbctx.Context, userID uuid.UUID, expectedVersion int64, next types.UserAggregates) (bool, error)
	// Top orders users by col descending. A non-nil activeSince limits the
	// result to users whose last progress is at or after it.
	Top(dbc dbctx.Context, col RankColumn, activeSince *time.Time, limit int) ([]*types.User, error)
	// RankByTotalXP is 1 + the number of users strictly ahead of userID.
	RankByTotalXP(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := dbc.Conn(ur.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := dbc.Conn(ur.db).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByEmails(dbc dbctx.Context, userEmails []string) ([]*types.User, error) {
	var results []*types.User
	if len(userEmails) == 0 {
		return results, nil
	}
	if err := dbc.Conn(ur.db).
		Where("email IN ?", userEmails).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) EmailExists(dbc dbctx.Context, userEmail string) (bool, error) {
	var count int64
	if err := dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("email = ?", userEmail).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) UpdateName(dbc dbctx.Context, userID uuid.UUID, firstName, lastName string) error {
	return dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"first_name": firstName,
			"last_name":  lastName,
		}).Error
}

func (ur *userRepo) UpdateAvatarColor(dbc dbctx.Context, userID uuid.UUID, avatarColor string) error {
	return dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("avatar_color", avatarColor).Error
}

func (ur *userRepo) UpdateAvatarFields(dbc dbctx.Context, userID uuid.UUID, bucketKey, avatarURL string) error {
	return dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"avatar_bucket_key": bucketKey,
			"avatar_url":        avatarURL,
		}).Error
}

func (ur *userRepo) ApplyProgress(dbc dbctx.Context, userID uuid.UUID, expectedVersion int64, next types.UserAggregates) (bool, error) {
	res := dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("id = ? AND progress_version = ?", userID, expectedVersion).
		Updates(map[string]any{
			"total_xp":           next.TotalXP,
			"daily_xp":           next.DailyXP,
			"streak":             next.Streak,
			"last_progress_date": next.LastProgressDate,
			"progress_version":   gorm.Expr("progress_version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (ur *userRepo) Top(dbc dbctx.Context, col RankColumn, activeSince *time.Time, limit int) ([]*types.User, error) {
	if !col.Valid() {
		col = RankByTotalXP
	}
	if limit <= 0 {
		limit = 10
	}
	q := dbc.Conn(ur.db).Model(&types.User{})
	if activeSince != nil {
		q = q.Where("last_progress_date >= ?", *activeSince)
	}
	var results []*types.User
	if err := q.
		Order(string(col) + " DESC").
		Order("total_xp DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) RankByTotalXP(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var u types.User
	conn := dbc.Conn(ur.db)
	if err := conn.Select("total_xp").Where("id = ?", userID).First(&u).Error; err != nil {
		return 0, err
	}
	var ahead int64
	if err := dbc.Conn(ur.db).
		Model(&types.User{}).
		Where("total_xp > ?", u.TotalXP).
		Count(&ahead).Error; err != nil {
		return 0, err
	}
	return ahead + 1, nil
}
