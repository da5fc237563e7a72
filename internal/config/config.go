package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"exam-quiz/pkg/cache"
	"exam-quiz/pkg/database"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	CORSOrigins []string
	JWTSecret   string
	SessionTTL  time.Duration
	AutoMigrate bool
	Database    database.Config
	Redis       cache.Options
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPAddr:  get("HTTP_ADDR", ":8080"),
		JWTSecret: getenv("JWT_SECRET"),
		Database: database.Config{
			Driver:     get("DB_DRIVER", database.DriverPostgres),
			Host:       get("DB_HOST", "localhost"),
			Port:       get("DB_PORT", "5432"),
			User:       get("DB_USER", "postgres"),
			Password:   getenv("DB_PASSWORD"),
			DBName:     get("DB_NAME", "exam_quiz"),
			SSLMode:    get("DB_SSLMODE", "disable"),
			SQLitePath: get("SQLITE_PATH", "exam_quiz.db"),
			LogLevel:   get("LOG_LEVEL", "warn"),
		},
		Redis: cache.Options{
			Addr:     get("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD"),
		},
	}

	var err error
	if cfg.Redis.DB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(get("SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(get("AUTO_MIGRATE", "true")); err != nil {
		return nil, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}

	for _, origin := range strings.Split(get("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
