package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/platform/objectstore"
)

type Clients struct {
	Redis       *goredis.Client
	Leaderboard redis.LeaderboardCache
	Avatars     objectstore.Store
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients
	if cfg.RedisAddr != "" {
		rdb, err := redis.NewClient(ctx, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			// The leaderboard falls back to the database.
			log.Warn("Redis unavailable, leaderboard cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			out.Redis = rdb
			out.Leaderboard = redis.NewLeaderboardCache(rdb, log)
		}
	}

	store, err := objectstore.New(ctx, cfg.Avatars, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init avatar storage: %w", err)
	}
	out.Avatars = store
	return out, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
