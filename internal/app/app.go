package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/http"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/platform/observability"
)

const leaderboardWarmSize = 1000

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	dbService    *db.Service
	otelShutdown  func(context.Context) error
}

// New wires the application. migrate runs AutoMigrate before anything touches
// the schema.
func New(ctx context.Context, migrate bool) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.LogMode,
		Version:     cfg.Version,
	})

	dbService, err := db.Open(db.ConfigFromEnv(log), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if migrate {
		if err := db.AutoMigrateAll(dbService.DB()); err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	theDB := dbService.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset, theDB, clients)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start runs the startup tasks: seeding known topics and warming the
// leaderboard cache.
func (a *App) Start(ctx context.Context) error {
	if a.Cfg.SeedOnStart {
		if err := a.Services.Seed.EnsureSeededAll(ctx, a.Cfg.SeedTopics); err != nil {
			return fmt.Errorf("seed topics: %w", err)
		}
	}
	if _, err := a.Services.Leaderboard.Warm(ctx, leaderboardWarmSize); err != nil {
		a.Log.Warn("Leaderboard cache warm-up failed", "error", err)
	}
	return nil
}

func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.HTTPAddr
	}
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
