// pkg/database/database.go
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"exam-quiz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	LogLevel   string
}

// Open connects to the configured store.
func Open(config *Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: newLogger(config.LogLevel)}

	switch config.Driver {
	case "", DriverPostgres:
		return NewPostgresDB(config, gormConfig)
	case DriverSQLite:
		if config.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return NewSQLiteDB(config.SQLitePath, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database handle: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func newLogger(level string) logger.Interface {
	return logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  ParseLogLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

// ParseLogLevel maps silent, error, warn and info to gorm levels. Anything
// else means warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
