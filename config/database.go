package config

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// DatabaseConfig holds the MySQL connection and pool settings.
//
// Set via env:
// - DB_USER, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME
// - DB_MAX_OPEN_CONNS (default 50)
// - DB_MAX_IDLE_CONNS (default 25)
// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
// - DB_CONN_MAX_IDLE_TIME_SECONDS (default 60)
// - DB_CONNECT_MAX_BACKOFF_SECONDS (default 30)
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MaxBackoff      time.Duration
}

func DatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		User:            os.Getenv("DB_USER"),
		Password:        os.Getenv("DB_PASSWORD"),
		Host:            os.Getenv("DB_HOST"),
		Port:            os.Getenv("DB_PORT"),
		Name:            os.Getenv("DB_NAME"),
		MaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		ConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
		MaxBackoff:      time.Duration(intFromEnv("DB_CONNECT_MAX_BACKOFF_SECONDS", 30)) * time.Second,
	}
}

// DSN builds the go-sql-driver DSN. A host under /cloudsql/ is dialed as a unix socket.
func (c DatabaseConfig) DSN() string {
	network, address := "tcp", c.Host+":"+c.Port
	if strings.HasPrefix(c.Host, "/cloudsql/") {
		network, address = "unix", c.Host
	}
	// utf8mb4 keeps Arabic rule and category names intact.
	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.User, c.Password, network, address, c.Name)
}

// Open makes a single connection attempt and applies the pool settings.
func (c DatabaseConfig) Open() (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(c.DSN()), GormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	if c.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)
	}
	return db, nil
}

// ConnectDatabaseWithRetry keeps calling Open with exponential backoff until it
// succeeds or ctx is done. The handle is passed explicitly to stores and workflows.
func ConnectDatabaseWithRetry(ctx context.Context, logger *logrus.Logger) (*gorm.DB, error) {
	cfg := DatabaseConfigFromEnv()
	for attempt := 1; ; attempt++ {
		db, err := cfg.Open()
		if err == nil {
			if perr := db.Use(otelgorm.NewPlugin()); perr != nil {
				LogWarning(logger, "config", "ConnectDatabaseWithRetry", "otelgorm plugin not installed", perr.Error())
			}
			logger.WithFields(logrus.Fields{"attempt": attempt, "host": cfg.Host, "database": cfg.Name}).Info("connected to database")
			return db, nil
		}

		wait := connectBackoff(attempt, cfg.MaxBackoff)
		logger.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).Warn("database connection failed")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// connectBackoff doubles from 2s and is capped at limit.
func connectBackoff(attempt int, limit time.Duration) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	wait := time.Second << attempt
	if limit > 0 && wait > limit {
		return limit
	}
	return wait
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GormConfig is shared by the MySQL connection and the sqlite databases used in tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger(),
		NamingStrategy: schema.NamingStrategy{},
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// gormLogger only reports errors on stdout. GORM_LOG=<file> switches to full SQL
// tracing into that file.
func gormLogger() logger.Interface {
	var out io.Writer = os.Stdout
	cfg := logger.Config{
		LogLevel:                  logger.Error,
		SlowThreshold:             time.Second,
		IgnoreRecordNotFoundError: true,
	}
	if path := os.Getenv("GORM_LOG"); path != "" {
		if f, err := os.Create(path); err == nil {
			out = f
			cfg.LogLevel = logger.Info
		}
	}
	return logger.New(log.New(out, "\r\n", log.LstdFlags), cfg)
}
