package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null;size:255;column:email" json:"email"`
	Password        string    `gorm:"not null;column:password" json:"-"`
	FirstName       string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName        string    `gorm:"not null;column:last_name" json:"last_name"`
	AvatarBucketKey string    `gorm:"column:avatar_bucket_key" json:"-"`
	AvatarURL       string    `gorm:"column:avatar_url" json:"avatar_url"`
	AvatarColor     string    `gorm:"column:avatar_color" json:"avatar_color"`

	// Gamification aggregates, written only by the progress engine.
	TotalXP          int        `gorm:"column:total_xp;not null;default:0;index" json:"total_xp"`
	DailyXP          int        `gorm:"column:daily_xp;not null;default:0" json:"daily_xp"`
	Streak           int        `gorm:"column:streak;not null;default:0" json:"streak"`
	LastProgressDate *time.Time `gorm:"column:last_progress_date" json:"last_progress_date"`
	ProgressVersion  int64      `gorm:"column:progress_version;not null;default:0" json:"-"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Aggregates is the gamification snapshot the progress engine reads and writes.
type Aggregates struct {
	TotalXP          int        `json:"totalXp"`
	DailyXP          int        `json:"dailyXp"`
	Streak           int        `json:"streak"`
	LastProgressDate *time.Time `json:"lastProgressDate"`
}

func (u *User) Aggregates() Aggregates {
	return Aggregates{
		TotalXP:          u.TotalXP,
		DailyXP:          u.DailyXP,
		Streak:           u.Streak,
		LastProgressDate: u.LastProgressDate,
	}
}
