package config

import (
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "s3cret"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Port != "5432" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.SessionTTL != 24*time.Hour || !cfg.AutoMigrate {
		t.Fatalf("SessionTTL = %v, AutoMigrate = %v", cfg.SessionTTL, cfg.AutoMigrate)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"JWT_SECRET":   "s3cret",
		"DB_DRIVER":    "sqlite",
		"SQLITE_PATH":  "/tmp/q.db",
		"REDIS_DB":     "3",
		"SESSION_TTL":  "90m",
		"AUTO_MIGRATE": "false",
		"CORS_ORIGINS": "https://a.example, https://b.example ,",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/q.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Redis.DB != 3 || cfg.SessionTTL != 90*time.Minute || cfg.AutoMigrate {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv without JWT_SECRET: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected server validation error without JWT_SECRET")
	}
	if _, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "x", "SESSION_TTL": "forever"})); err == nil {
		t.Fatalf("expected error for bad SESSION_TTL")
	}
	if _, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "x", "REDIS_DB": "one"})); err == nil {
		t.Fatalf("expected error for bad REDIS_DB")
	}
}
