package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/http"
	httpH "github.com/yungbote/sparkquest-backend/internal/http/handlers"
	httpMW "github.com/yungbote/sparkquest-backend/internal/http/middleware"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/platform/objectstore"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	User        *httpH.UserHandler
	Quiz        *httpH.QuizHandler
	Leaderboard *httpH.LeaderboardHandler
	Chatbot     *httpH.ChatbotHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, db *gorm.DB, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	probes := []httpH.HealthProbe{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if clients.Redis != nil {
		probes = append(probes, httpH.HealthProbe{
			Name:     "redis",
			Optional: true,
			Check:    func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() },
		})
	}
	return Handlers{
		Health:      httpH.NewHealthHandler(probes...),
		Auth:        httpH.NewAuthHandler(services.Auth),
		User:        httpH.NewUserHandler(services.User),
		Quiz:        httpH.NewQuizHandler(log, services.Quiz, services.Progress),
		Leaderboard: httpH.NewLeaderboardHandler(services.Leaderboard),
		Chatbot:     httpH.NewChatbotHandler(log, services.Chatbot, cfg.CORSOrigins),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *http.Server {
	rc := http.RouterConfig{
		Log:                log,
		ServiceName:        cfg.OtelServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		AuthMiddleware:     middleware.Auth,
		AuthHandler:        handlers.Auth,
		UserHandler:        handlers.User,
		QuizHandler:        handlers.Quiz,
		LeaderboardHandler: handlers.Leaderboard,
		ChatbotHandler:     handlers.Chatbot,
		HealthHandler:      handlers.Health,
	}
	if cfg.Avatars.Mode == objectstore.ModeLocal || cfg.Avatars.Mode == "" {
		rc.AvatarDir = cfg.Avatars.Dir
		rc.AvatarRoute = cfg.AvatarRoute
	}
	return http.NewServer(rc)
}
