package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

type Services struct {
	Avatar      services.AvatarService
	Auth        services.AuthService
	User        services.UserService
	Progress    services.ProgressService
	Quiz        services.QuizService
	Seed        services.SeedService
	Leaderboard services.LeaderboardService
	Chatbot     services.ChatbotService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	board := clients.Leaderboard

	avatar, err := services.NewAvatarService(log, clients.Avatars)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}
	seed, err := services.NewSeedService(log, repos.Question, nil)
	if err != nil {
		return Services{}, fmt.Errorf("init seed service: %w", err)
	}

	return Services{
		Avatar:      avatar,
		Auth:        services.NewAuthService(db, log, repos.User, repos.UserToken, avatar, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		User:        services.NewUserService(db, log, repos.User, avatar, board),
		Progress:    services.NewProgressService(log, repos.User, repos.Progress, board, cfg.TimeZone),
		Quiz:        services.NewQuizService(log, repos.User, repos.Question, repos.Progress, nil),
		Seed:        seed,
		Leaderboard: services.NewLeaderboardService(log, repos.User, board, cfg.TimeZone),
		Chatbot: services.NewChatbotService(log, services.ChatbotConfig{
			URL:        cfg.ChatbotURL,
			Timeout:    cfg.ChatbotTimeout,
			MaxRetries: cfg.ChatbotMaxRetries,
		}, nil),
	}, nil
}
