package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/sparkquest-backend/internal/http/handlers"
	httpMW "github.com/yungbote/sparkquest-backend/internal/http/middleware"
	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	AvatarDir      string
	AvatarRoute    string
	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler        *httpH.AuthHandler
	UserHandler        *httpH.UserHandler
	QuizHandler        *httpH.QuizHandler
	LeaderboardHandler *httpH.LeaderboardHandler
	ChatbotHandler     *httpH.ChatbotHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	response.UseJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Locally stored avatars
	if cfg.AvatarDir != "" && cfg.AvatarRoute != "" {
		r.Static(cfg.AvatarRoute, cfg.AvatarDir)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/signup", cfg.AuthHandler.Signup)
			api.POST("/signin", cfg.AuthHandler.Signin)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/signout", cfg.AuthHandler.Signout)
		}

		// Quiz + progress
		if cfg.QuizHandler != nil {
			protected.GET("/quiz/topics", cfg.QuizHandler.Topics)
			protected.GET("/quiz/:topic/next", cfg.QuizHandler.Next)
			protected.POST("/quiz/:topic/answer", cfg.QuizHandler.Answer)
			protected.POST("/progress/complete-lesson", cfg.QuizHandler.CompleteLesson)
			protected.GET("/progress", cfg.QuizHandler.History)
		}

		// Leaderboard
		if cfg.LeaderboardHandler != nil {
			protected.GET("/leaderboard", cfg.LeaderboardHandler.Top)
			protected.GET("/leaderboard/me", cfg.LeaderboardHandler.Me)
		}

		// Profile
		if cfg.UserHandler != nil {
			protected.GET("/profile", cfg.UserHandler.GetProfile)
			protected.PATCH("/profile", cfg.UserHandler.UpdateProfile)
			protected.POST("/profile/avatar", cfg.UserHandler.UploadAvatar)
		}

		// Chatbot
		if cfg.ChatbotHandler != nil {
			protected.POST("/chatbot", cfg.ChatbotHandler.Ask)
			protected.GET("/chatbot/ws", cfg.ChatbotHandler.WebSocket)
		}
	}

	return r
}
