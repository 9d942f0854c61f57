package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type Mode string

const (
	ModeLocal       Mode = "local"
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
)

// Store holds public blobs (avatars) addressed by slash separated keys.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
}

type Config struct {
	Mode Mode
	// Local mode.
	Dir        string
	PublicBase string
	// GCS modes.
	Bucket       string
	CDNDomain    string
	EmulatorHost string
}

func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	switch cfg.Mode {
	case ModeLocal, "":
		return NewLocal(cfg.Dir, cfg.PublicBase, log)
	case ModeGCS, ModeGCSEmulator:
		return NewGCS(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("invalid AVATAR_STORAGE=%q (allowed: %q, %q, %q)", cfg.Mode, ModeLocal, ModeGCS, ModeGCSEmulator)
	}
}

func cleanKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}
