package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/sparkquest-backend/internal/platform/envutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string
	// SlowThreshold feeds the gorm logger; zero means one second.
	SlowThreshold time.Duration
	Silent        bool
}

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

// ConfigFromEnv resolves DB_DRIVER and DB_DSN, falling back to the
// POSTGRES_* or MYSQL_* parts when no DSN is given.
func ConfigFromEnv(log *logger.Logger) Config {
	driver := strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres, log))
	dsn := envutil.String("DB_DSN", "", log)
	if dsn == "" {
		switch driver {
		case DriverPostgres:
			dsn = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s?sslmode=disable",
				envutil.String("POSTGRES_USER", "postgres", log),
				envutil.String("POSTGRES_PASSWORD", "", log),
				envutil.String("POSTGRES_HOST", "localhost", log),
				envutil.String("POSTGRES_PORT", "5432", log),
				envutil.String("POSTGRES_NAME", "sparkquest", log),
			)
		case DriverMySQL:
			dsn = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				envutil.String("MYSQL_USER", "root", log),
				envutil.String("MYSQL_PASSWORD", "", log),
				envutil.String("MYSQL_HOST", "localhost", log),
				envutil.String("MYSQL_PORT", "3306", log),
				envutil.String("MYSQL_NAME", "sparkquest", log),
			)
		case DriverSQLite:
			dsn = "file:sparkquest.db?_busy_timeout=5000"
		}
	}
	return Config{Driver: driver, DSN: dsn}
}

func Open(cfg Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	level := gormLogger.Warn
	if cfg.Silent {
		level = gormLogger.Silent
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	serviceLog.Info("Database connected")
	return &Service{db: db, driver: cfg.Driver, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB   { return s.db }
func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
