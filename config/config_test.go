package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_TYPE", "DATA_SOURCE_NAME", "DATABASE_URL", "REDIS_URL", "REDIS_KEY_PREFIX", "LISTEN_ADDR", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "MAX_BODY_BYTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	want := Default()
	if cfg.StorageType != want.StorageType || cfg.RedisPrefix != want.RedisPrefix || cfg.ListenAddr != want.ListenAddr || cfg.MaxBodyBytes != want.MaxBodyBytes {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want none", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "SQLite")
	t.Setenv("DATA_SOURCE_NAME", "/tmp/x.db")
	t.Setenv("DATABASE_URL", "postgres://localhost/draw")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("REDIS_KEY_PREFIX", "sketches:")
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("MAX_BODY_BYTES", "2048")
	t.Setenv("DB_MAX_OPEN_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "30")

	cfg := Load()
	if cfg.StorageType != "sqlite" {
		t.Errorf("StorageType = %q", cfg.StorageType)
	}
	if cfg.DataSourceName != "/tmp/x.db" || cfg.DatabaseURL != "postgres://localhost/draw" || cfg.ListenAddr != ":9000" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.RedisURL != "redis://localhost:6379/2" || cfg.RedisPrefix != "sketches:" {
		t.Errorf("redis config = %q / %q", cfg.RedisURL, cfg.RedisPrefix)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.DB.MaxOpenConns != 3 || cfg.DB.ConnMaxLifetime != 30*time.Second {
		t.Errorf("DB = %+v", cfg.DB)
	}
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "lots")
	t.Setenv("DB_MAX_IDLE_CONNS", "-1")

	cfg := Load()
	if cfg.MaxBodyBytes != Default().MaxBodyBytes {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.DB.MaxIdleConns != Default().DB.MaxIdleConns {
		t.Errorf("MaxIdleConns = %d", cfg.DB.MaxIdleConns)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DRAWBOARD_TEST_KEY=from-file\nDRAWBOARD_TEST_KEEP=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DRAWBOARD_TEST_KEEP", "from-env")
	t.Setenv("DRAWBOARD_TEST_KEY", "")
	os.Unsetenv("DRAWBOARD_TEST_KEY")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() failed: %v", err)
	}
	if got := os.Getenv("DRAWBOARD_TEST_KEY"); got != "from-file" {
		t.Errorf("DRAWBOARD_TEST_KEY = %q", got)
	}
	if got := os.Getenv("DRAWBOARD_TEST_KEEP"); got != "from-env" {
		t.Errorf("existing variable was overwritten: %q", got)
	}
}
