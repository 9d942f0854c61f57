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
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

// maxAggregateAttempts bounds the compare-and-swap loop on the user row.
const maxAggregateAttempts = 5

type RecordAnswerInput struct {
	UserID      uuid.UUID
	Topic       string
	QuestionID  string
	XP          int
	Correctness learning.Correctness
	UserAnswer  string
}

// RecordResult describes what a submission changed. Recorded is false for
// skips; Applied is true only when the user aggregates moved.
type RecordResult struct {
	Recorded   bool
	Applied    bool
	Progress   *types.Progress
	Aggregates types.UserAggregates
}

type ProgressService interface {
	RecordAnswer(ctx context.Context, in RecordAnswerInput, now time.Time) (*RecordResult, error)
	CompleteLesson(ctx context.Context, userID uuid.UUID, xp int, now time.Time) (*RecordResult, error)
	History(ctx context.Context, userID uuid.UUID, topic string, limit int) ([]*types.Progress, error)
}

type progressService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	progressRepo repos.ProgressRepo
	board        redis.LeaderboardCache
	loc          *time.Location
}

// NewProgressService builds the accrual engine. board may be nil; loc decides
// where calendar days start and defaults to time.Local.
func NewProgressService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	progressRepo repos.ProgressRepo,
	board redis.LeaderboardCache,
	loc *time.Location,
) ProgressService {
	if loc == nil {
		loc = time.Local
	}
	return &progressService{
		log:          log.With("service", "ProgressService"),
		userRepo:     userRepo,
		progressRepo: progressRepo,
		board:        board,
		loc:          loc,
	}
}

func (ps *progressService) RecordAnswer(ctx context.Context, in RecordAnswerInput, now time.Time) (*RecordResult, error) {
	const op = "progress.record_answer"

	topic := learning.NormalizeTopic(in.Topic)
	questionID := strings.TrimSpace(in.QuestionID)
	var fields []types.FieldError
	if topic == "" {
		fields = append(fields, types.FieldError{Path: "topic", Message: "topic is required"})
	}
	if in.XP < 0 {
		fields = append(fields, types.FieldError{Path: "xp", Message: "xp must be a non-negative integer"})
	}
	if !in.Correctness.Valid() {
		fields = append(fields, types.FieldError{Path: "isCorrect", Message: "isCorrect must be true, false or null"})
	}
	if len(fields) > 0 {
		return nil, types.ValidationError(op, fields...)
	}

	if in.Correctness == learning.Skipped || questionID == "" {
		return &RecordResult{}, nil
	}

	u, err := ps.loadUser(ctx, op, in.UserID)
	if err != nil {
		return nil, err
	}

	rec := &types.Progress{
		UserID:      in.UserID,
		Topic:       topic,
		QuestionID:  questionID,
		Kind:        learning.ProgressKindAnswer,
		XP:          in.XP,
		Correctness: in.Correctness,
		UserAnswer:  in.UserAnswer,
		AnsweredAt:  now.UTC(),
	}
	if _, err := ps.progressRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Progress{rec}); err != nil {
		ps.log.Error("Failed to write progress record", "user_id", in.UserID, "topic", topic, "error", err)
		return nil, db.MapError(op, err)
	}

	res := &RecordResult{Recorded: true, Progress: rec, Aggregates: u.Aggregates()}
	if in.Correctness != learning.Correct {
		return res, nil
	}

	agg, err := ps.accrue(ctx, op, u, in.XP, now)
	if err != nil {
		return nil, err
	}
	res.Applied = true
	res.Aggregates = agg
	return res, nil
}

func (ps *progressService) CompleteLesson(ctx context.Context, userID uuid.UUID, xp int, now time.Time) (*RecordResult, error) {
	const op = "progress.complete_lesson"
	if xp < 0 {
		return nil, types.ValidationError(op, types.FieldError{Path: "xp", Message: "xp must be a non-negative integer"})
	}

	u, err := ps.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	rec := &types.Progress{
		UserID:      userID,
		Topic:       learning.GeneralTopic,
		Kind:        learning.ProgressKindLesson,
		XP:          xp,
		Correctness: learning.Correct,
		AnsweredAt:  now.UTC(),
	}
	if _, err := ps.progressRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Progress{rec}); err != nil {
		ps.log.Error("Failed to write lesson record", "user_id", userID, "error", err)
		return nil, db.MapError(op, err)
	}

	agg, err := ps.accrue(ctx, op, u, xp, now)
	if err != nil {
		return nil, err
	}
	return &RecordResult{Recorded: true, Applied: true, Progress: rec, Aggregates: agg}, nil
}

func (ps *progressService) History(ctx context.Context, userID uuid.UUID, topic string, limit int) ([]*types.Progress, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := ps.progressRepo.ListByUser(dbctx.Context{Ctx: ctx}, userID, topic, limit)
	if err != nil {
		return nil, db.MapError("progress.history", err)
	}
	return rows, nil
}

func (ps *progressService) loadUser(ctx context.Context, op string, userID uuid.UUID) (*types.User, error) {
	users, err := ps.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if len(users) == 0 || users[0] == nil {
		return nil, types.NotFoundError(op, "user not found")
	}
	return users[0], nil
}

// accrue applies the day rollover to u and persists it, re-reading the row
// whenever a concurrent writer bumped its version first.
func (ps *progressService) accrue(ctx context.Context, op string, u *types.User, xp int, now time.Time) (types.UserAggregates, error) {
	cur := u
	for attempt := 1; attempt <= maxAggregateAttempts; attempt++ {
		next := ApplyDayRollover(cur.Aggregates(), xp, now, ps.loc)
		ok, err := ps.userRepo.ApplyProgress(dbctx.Context{Ctx: ctx}, cur.ID, cur.ProgressVersion, next)
		if err != nil {
			ps.log.Error("Failed to update user aggregates", "user_id", cur.ID, "error", err)
			return types.UserAggregates{}, db.MapError(op, err)
		}
		if ok {
			ps.publishScore(ctx, cur.ID, next.TotalXP)
			return next, nil
		}
		ps.log.Debug("User aggregate version moved, retrying", "user_id", cur.ID, "attempt", attempt)
		if cur, err = ps.loadUser(ctx, op, cur.ID); err != nil {
			return types.UserAggregates{}, err
		}
	}
	return types.UserAggregates{}, types.NewError(types.CodeUnavailable, op, "user aggregates are under contention, retry later", nil)
}

func (ps *progressService) publishScore(ctx context.Context, userID uuid.UUID, totalXP int) {
	if ps.board == nil {
		return
	}
	if err := ps.board.SetTotalXP(ctx, userID, int64(totalXP)); err != nil {
		ps.log.Warn("Leaderboard cache update failed, invalidating", "user_id", userID, "error", err)
		// A stale score must not be served as a rank.
		if err := ps.board.Invalidate(ctx); err != nil {
			ps.log.Warn("Leaderboard cache invalidation failed", "error", err)
		}
	}
}

// ApplyDayRollover is the single XP/streak rule shared by answers and lessons.
// The first accrual on a calendar day (in loc) bumps the streak and restarts
// daily XP; later ones on the same day accumulate.
func ApplyDayRollover(cur types.UserAggregates, xp int, now time.Time, loc *time.Location) types.UserAggregates {
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now, loc)
	next := cur
	if cur.LastProgressDate == nil || startOfDay(*cur.LastProgressDate, loc).Before(today) {
		next.Streak++
		next.DailyXP = xp
	} else {
		next.DailyXP += xp
	}
	next.TotalXP += xp
	stamp := now.UTC()
	next.LastProgressDate = &stamp
	return next
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
