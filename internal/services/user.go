package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type Profile struct {
	User       *types.User          `json:"user"`
	Aggregates types.UserAggregates `json:"aggregates"`
	Rank       int64                `json:"rank"`
}

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	GetProfile(ctx context.Context) (*Profile, error)
	// UpdateName changes whichever names are non-nil and redraws the initials avatar.
	UpdateName(ctx context.Context, firstName, lastName *string) (*types.User, error)
	UploadAvatarImage(ctx context.Context, raw []byte) (*types.User, error)
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	avatarService AvatarService
	board         redis.LeaderboardCache
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, avatarService AvatarService, board redis.LeaderboardCache) UserService {
	return &userService{
		db:            db,
		log:           log.With("service", "UserService"),
		userRepo:      userRepo,
		avatarService: avatarService,
		board:         board,
	}
}

func requireUserID(ctx context.Context, op string) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, unauthorized(op, "request is not authenticated")
	}
	return rd.UserID, nil
}

func (us *userService) getUser(dbc dbctx.Context, op string, userID uuid.UUID) (*types.User, error) {
	found, err := us.userRepo.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, types.NotFoundError(op, "user not found")
	}
	return found[0], nil
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	const op = "user.me"
	userID, err := requireUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	return us.getUser(dbctx.Context{Ctx: ctx}, op, userID)
}

func (us *userService) GetProfile(ctx context.Context) (*Profile, error) {
	const op = "user.profile"
	userID, err := requireUserID(ctx, op)
	if err != nil {
		return nil, err
	}

	var (
		user *types.User
		rank int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := us.getUser(dbctx.Context{Ctx: gctx}, op, userID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		r, err := us.rank(gctx, op, userID)
		if err != nil {
			return err
		}
		rank = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Profile{User: user, Aggregates: user.Aggregates(), Rank: rank}, nil
}

// rank prefers the cached sorted set and falls back to counting in the DB.
func (us *userService) rank(ctx context.Context, op string, userID uuid.UUID) (int64, error) {
	if us.board != nil {
		r, ok, err := us.board.Rank(ctx, userID)
		if err == nil && ok {
			return r, nil
		}
		if err != nil {
			us.log.Warn("Leaderboard cache rank failed, using database", "user_id", userID, "error", err)
		}
	}
	r, err := us.userRepo.RankByTotalXP(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return 0, db.MapError(op, err)
	}
	return r, nil
}

func (us *userService) UpdateName(ctx context.Context, firstName, lastName *string) (*types.User, error) {
	const op = "user.update_name"
	userID, err := requireUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if firstName == nil && lastName == nil {
		return nil, types.ValidationError(op, types.FieldError{Path: "first_name", Message: "first_name or last_name is required"})
	}

	var fields []types.FieldError
	if firstName != nil && strings.TrimSpace(*firstName) == "" {
		fields = append(fields, types.FieldError{Path: "first_name", Message: "first_name must not be blank"})
	}
	if lastName != nil && strings.TrimSpace(*lastName) == "" {
		fields = append(fields, types.FieldError{Path: "last_name", Message: "last_name must not be blank"})
	}
	if len(fields) > 0 {
		return nil, types.ValidationError(op, fields...)
	}

	var out *types.User
	err = us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		u, err := us.getUser(dbc, op, userID)
		if err != nil {
			return err
		}
		if firstName != nil {
			u.FirstName = strings.TrimSpace(*firstName)
		}
		if lastName != nil {
			u.LastName = strings.TrimSpace(*lastName)
		}
		if err := us.userRepo.UpdateName(dbc, userID, u.FirstName, u.LastName); err != nil {
			return err
		}
		if err := us.avatarService.CreateAndUploadUserAvatar(ctx, u); err != nil {
			return fmt.Errorf("regenerate avatar: %w", err)
		}
		if err := us.userRepo.UpdateAvatarColor(dbc, userID, u.AvatarColor); err != nil {
			return err
		}
		if err := us.userRepo.UpdateAvatarFields(dbc, userID, u.AvatarBucketKey, u.AvatarURL); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		us.log.Warn("UpdateName failed", "user_id", userID, "error", err)
		return nil, db.MapError(op, err)
	}
	return out, nil
}

func (us *userService) UploadAvatarImage(ctx context.Context, raw []byte) (*types.User, error) {
	const op = "user.upload_avatar"
	userID, err := requireUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, types.ValidationError(op, types.FieldError{Path: "file", Message: "file is required"})
	}
	if len(raw) > MaxAvatarUploadBytes {
		return nil, types.ValidationError(op, types.FieldError{Path: "file", Message: "file must be 5MB or smaller"})
	}

	u, err := us.getUser(dbctx.Context{Ctx: ctx}, op, userID)
	if err != nil {
		return nil, err
	}
	if err := us.avatarService.CreateAndUploadUserAvatarFromImage(ctx, u, raw); err != nil {
		if errors.Is(err, ErrInvalidAvatarImage) {
			return nil, types.ValidationError(op, types.FieldError{Path: "file", Message: "file is not a supported image"})
		}
		return nil, types.NewError(types.CodeUnavailable, op, "avatar storage failed", err)
	}
	if err := us.userRepo.UpdateAvatarFields(dbctx.Context{Ctx: ctx}, userID, u.AvatarBucketKey, u.AvatarURL); err != nil {
		return nil, db.MapError(op, err)
	}
	return u, nil
}
