package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

const (
	LeaderboardTotalXPKey = "leaderboard:total_xp"
	// LeaderboardWarmedKey holds the floor score of the last completed warm.
	LeaderboardWarmedKey = "leaderboard:total_xp:warmed"
)

type ScoreEntry struct {
	UserID uuid.UUID
	Score  int64
	Rank   int64
}

// LeaderboardCache mirrors users' total XP in a sorted set.
//
// After a warm, every user whose total XP is strictly above the recorded
// floor is a member. Reads answer only when that guarantee covers the result;
// ok=false tells the caller to use the database.
type LeaderboardCache interface {
	// SetTotalXP never lowers a member's score.
	SetTotalXP(ctx context.Context, userID uuid.UUID, totalXP int64) error
	MarkWarmed(ctx context.Context, floor int64) error
	// Invalidate drops the warmed marker; reads fall back until the next warm.
	Invalidate(ctx context.Context) error
	Warmed(ctx context.Context) (floor int64, ok bool, err error)
	Top(ctx context.Context, limit int64) (entries []ScoreEntry, ok bool, err error)
	// Rank is 1 + the number of members with a strictly higher score.
	Rank(ctx context.Context, userID uuid.UUID) (rank int64, ok bool, err error)
}

type leaderboardCache struct {
	log       *logger.Logger
	rdb       *goredis.Client
	key       string
	warmedKey string
}

func NewLeaderboardCache(rdb *goredis.Client, log *logger.Logger) LeaderboardCache {
	return &leaderboardCache{
		log:       log.With("service", "RedisLeaderboard"),
		rdb:       rdb,
		key:       LeaderboardTotalXPKey,
		warmedKey: LeaderboardWarmedKey,
	}
}

func (c *leaderboardCache) SetTotalXP(ctx context.Context, userID uuid.UUID, totalXP int64) error {
	return c.rdb.ZAddGT(ctx, c.key, goredis.Z{
		Score:  float64(totalXP),
		Member: userID.String(),
	}).Err()
}

func (c *leaderboardCache) MarkWarmed(ctx context.Context, floor int64) error {
	return c.rdb.Set(ctx, c.warmedKey, floor, 0).Err()
}

func (c *leaderboardCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.warmedKey).Err()
}

func (c *leaderboardCache) Warmed(ctx context.Context) (int64, bool, error) {
	floor, err := c.rdb.Get(ctx, c.warmedKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", c.warmedKey, err)
	}
	return floor, true, nil
}

func (c *leaderboardCache) Top(ctx context.Context, limit int64) ([]ScoreEntry, bool, error) {
	if limit <= 0 {
		return []ScoreEntry{}, true, nil
	}
	floor, warmed, err := c.Warmed(ctx)
	if err != nil || !warmed {
		return nil, false, err
	}
	results, err := c.rdb.ZRevRangeWithScores(ctx, c.key, 0, limit-1).Result()
	if err != nil {
		return nil, false, err
	}
	// Members at or below the floor may have unlisted peers in the database.
	if int64(len(results)) < limit || int64(results[len(results)-1].Score) <= floor {
		return nil, false, nil
	}
	entries := make([]ScoreEntry, 0, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(member)
		if err != nil {
			c.log.Warn("Dropping malformed leaderboard member", "member", member)
			continue
		}
		entries = append(entries, ScoreEntry{UserID: id, Score: int64(z.Score), Rank: int64(i) + 1})
	}
	return entries, true, nil
}

func (c *leaderboardCache) Rank(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	floor, warmed, err := c.Warmed(ctx)
	if err != nil || !warmed {
		return 0, false, err
	}
	score, err := c.rdb.ZScore(ctx, c.key, userID.String()).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zscore: %w", err)
	}
	if int64(score) <= floor {
		return 0, false, nil
	}
	ahead, err := c.rdb.ZCount(ctx, c.key, "("+strconv.FormatInt(int64(score), 10), "+inf").Result()
	if err != nil {
		return 0, false, fmt.Errorf("zcount: %w", err)
	}
	return ahead + 1, true, nil
}
