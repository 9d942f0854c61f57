package app

import (
	"strings"
	"time"

	"github.com/yungbote/sparkquest-backend/internal/platform/envutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/platform/objectstore"
)

var defaultSeedTopics = []string{"magnetism", "electricity", "gravity", "energy"}

type Config struct {
	HTTPAddr string
	LogMode  string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// TimeZone decides where a calendar day starts for streaks.
	TimeZone *time.Location

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Avatars objectstore.Config
	// AvatarRoute is where local avatars are served, e.g. /avatars.
	AvatarRoute string

	ChatbotURL        string
	ChatbotTimeout    time.Duration
	ChatbotMaxRetries int

	SeedTopics      []string
	SeedOnStart     bool
	CORSOrigins     []string
	OtelServiceName string
	Version         string
}

func LoadConfig(log *logger.Logger) Config {
	port := envutil.String("PORT", "8080", log)
	addr := port
	if !strings.Contains(port, ":") {
		addr = ":" + port
	}

	avatarRoute := "/" + strings.Trim(envutil.String("AVATAR_ROUTE", "/avatars", log), "/")
	avatars := objectstore.Config{
		Mode:         objectstore.Mode(strings.ToLower(envutil.String("AVATAR_STORAGE", string(objectstore.ModeLocal), log))),
		Dir:          envutil.String("AVATAR_DIR", "./data/avatars", log),
		PublicBase:   envutil.String("AVATAR_PUBLIC_BASE", avatarRoute, log),
		Bucket:       envutil.String("AVATAR_GCS_BUCKET", "", log),
		CDNDomain:    envutil.String("AVATAR_CDN_DOMAIN", "", log),
		EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", "", log),
	}

	return Config{
		HTTPAddr:          addr,
		LogMode:           envutil.String("LOG_MODE", "development", log),
		JWTSecretKey:      envutil.String("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:    envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour, log),
		RefreshTokenTTL:   envutil.Seconds("REFRESH_TOKEN_TTL", 24*time.Hour, log),
		TimeZone:          loadLocation(envutil.String("APP_TIMEZONE", "", log), log),
		RedisAddr:         envutil.String("REDIS_ADDR", "", log),
		RedisPassword:     envutil.String("REDIS_PASSWORD", "", nil),
		RedisDB:           envutil.Int("REDIS_DB", 0, log),
		Avatars:           avatars,
		AvatarRoute:       avatarRoute,
		ChatbotURL:        envutil.String("CHATBOT_WEBHOOK_URL", "", log),
		ChatbotTimeout:    envutil.Seconds("CHATBOT_TIMEOUT", 30*time.Second, log),
		ChatbotMaxRetries: envutil.Int("CHATBOT_MAX_RETRIES", 2, log),
		SeedTopics:        envutil.List("SEED_TOPICS", defaultSeedTopics, log),
		SeedOnStart:       envutil.Bool("SEED_ON_START", true, log),
		CORSOrigins:       envutil.List("CORS_ORIGINS", nil, log),
		OtelServiceName:   envutil.String("OTEL_SERVICE_NAME", "sparkquest-backend", log),
		Version:           envutil.String("APP_VERSION", "dev", log),
	}
}

func loadLocation(name string, log *logger.Logger) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if log != nil {
			log.Warn("Unknown APP_TIMEZONE, using local time", "timezone", name, "error", err)
		}
		return time.Local
	}
	return loc
}
