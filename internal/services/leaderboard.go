package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type LeaderboardEntry struct {
	Rank      int64     `json:"rank"`
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL string    `json:"avatar_url"`
	TotalXP   int       `json:"total_xp"`
	DailyXP   int       `json:"daily_xp"`
	Streak    int       `json:"streak"`
}

type LeaderboardService interface {
	// Top ranks users by one of total_xp, daily_xp or streak. Blank by means total_xp.
	Top(ctx context.Context, by string, limit int) ([]LeaderboardEntry, error)
	Me(ctx context.Context) (*LeaderboardEntry, error)
	// Warm loads the top users by total XP into the cache unless a previous
	// warm already completed, then records the lowest loaded score.
	Warm(ctx context.Context, limit int) (int, error)
}

type leaderboardService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	board    redis.LeaderboardCache
	loc      *time.Location
	now      func() time.Time
}

func NewLeaderboardService(log *logger.Logger, userRepo repos.UserRepo, board redis.LeaderboardCache, loc *time.Location) LeaderboardService {
	if loc == nil {
		loc = time.Local
	}
	return &leaderboardService{
		log:      log.With("service", "LeaderboardService"),
		userRepo: userRepo,
		board:    board,
		loc:      loc,
		now:      time.Now,
	}
}

func (ls *leaderboardService) Top(ctx context.Context, by string, limit int) ([]LeaderboardEntry, error) {
	const op = "leaderboard.top"
	col := repos.RankColumn(strings.ToLower(strings.TrimSpace(by)))
	if col == "" {
		col = repos.RankByTotalXP
	}
	var fields []types.FieldError
	if !col.Valid() {
		fields = append(fields, types.FieldError{Path: "by", Message: "by must be one of total_xp, daily_xp, streak"})
	}
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit < 1 || limit > MaxLeaderboardLimit {
		fields = append(fields, types.FieldError{Path: "limit", Message: "limit must be between 1 and 100"})
	}
	if len(fields) > 0 {
		return nil, types.ValidationError(op, fields...)
	}

	if col == repos.RankByTotalXP {
		if entries, ok := ls.topFromCache(ctx, limit); ok {
			return entries, nil
		}
	}

	var since *time.Time
	if col == repos.RankByDailyXP {
		// Daily XP left over from an earlier day does not count.
		s := startOfDay(ls.now(), ls.loc).UTC()
		since = &s
	}
	users, err := ls.userRepo.Top(dbctx.Context{Ctx: ctx}, col, since, limit)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, entryFor(u, int64(i)+1))
	}
	return out, nil
}

func (ls *leaderboardService) topFromCache(ctx context.Context, limit int) ([]LeaderboardEntry, bool) {
	if ls.board == nil {
		return nil, false
	}
	scores, ok, err := ls.board.Top(ctx, int64(limit))
	if err != nil {
		ls.log.Warn("Leaderboard cache read failed, using database", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(scores))
	for _, s := range scores {
		ids = append(ids, s.UserID)
	}
	users, err := ls.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		ls.log.Warn("Loading cached leaderboard users failed, using database", "error", err)
		return nil, false
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]LeaderboardEntry, 0, len(scores))
	for _, s := range scores {
		u, ok := byID[s.UserID]
		if !ok {
			continue
		}
		out = append(out, entryFor(u, int64(len(out))+1))
	}
	return out, true
}

func (ls *leaderboardService) Me(ctx context.Context) (*LeaderboardEntry, error) {
	const op = "leaderboard.me"
	userID, err := requireUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	found, err := ls.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if len(found) == 0 {
		return nil, types.NotFoundError(op, "user not found")
	}

	var rank int64
	if ls.board != nil {
		r, ok, err := ls.board.Rank(ctx, userID)
		if err != nil {
			ls.log.Warn("Leaderboard cache rank failed, using database", "user_id", userID, "error", err)
		} else if ok {
			rank = r
		}
	}
	if rank == 0 {
		rank, err = ls.userRepo.RankByTotalXP(dbctx.Context{Ctx: ctx}, userID)
		if err != nil {
			return nil, db.MapError(op, err)
		}
	}
	e := entryFor(found[0], rank)
	return &e, nil
}

func (ls *leaderboardService) Warm(ctx context.Context, limit int) (int, error) {
	if ls.board == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if _, warmed, err := ls.board.Warmed(ctx); err != nil || warmed {
		return 0, err
	}
	users, err := ls.userRepo.Top(dbctx.Context{Ctx: ctx}, repos.RankByTotalXP, nil, limit)
	if err != nil {
		return 0, db.MapError("leaderboard.warm", err)
	}
	for _, u := range users {
		if err := ls.board.SetTotalXP(ctx, u.ID, int64(u.TotalXP)); err != nil {
			return 0, err
		}
	}
	// Users left out of a full page score at most the last loaded one.
	var floor int64
	if len(users) == limit && len(users) > 0 {
		floor = int64(users[len(users)-1].TotalXP)
	}
	if err := ls.board.MarkWarmed(ctx, floor); err != nil {
		return 0, err
	}
	ls.log.Info("Leaderboard cache warmed", "count", len(users), "floor", floor)
	return len(users), nil
}

func entryFor(u *types.User, rank int64) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:      rank,
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		TotalXP:   u.TotalXP,
		DailyXP:   u.DailyXP,
		Streak:    u.Streak,
	}
}
