package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	StorageType    string
	DataSourceName string
	DatabaseURL    string
	RedisURL       string
	RedisPrefix    string
	ListenAddr     string
	LogLevel       string
	AllowedOrigins []string
	MaxBodyBytes   int64
	DB             DBConfig
}

// DBConfig tunes the connection pool of the postgres store.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Default() Config {
	return Config{
		StorageType:    "memory",
		DataSourceName: "drawboard.db",
		RedisPrefix:    "drawboard:",
		ListenAddr:     ":3002",
		LogLevel:       "info",
		MaxBodyBytes:   10 << 20,
		DB: DBConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// Load reads the process environment on top of Default. Call LoadDotEnv
// first to pick up a .env file.
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("STORAGE_TYPE"); raw != "" {
		cfg.StorageType = strings.ToLower(raw)
	}
	if raw := os.Getenv("DATA_SOURCE_NAME"); raw != "" {
		cfg.DataSourceName = raw
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if raw := os.Getenv("REDIS_KEY_PREFIX"); raw != "" {
		cfg.RedisPrefix = raw
	}
	if raw := os.Getenv("LISTEN_ADDR"); raw != "" {
		cfg.ListenAddr = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	if raw := os.Getenv("MAX_BODY_BYTES"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil && value > 0 {
			cfg.MaxBodyBytes = value
		} else {
			logrus.WithField("value", raw).Warn("Ignoring invalid MAX_BODY_BYTES")
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DB.MaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DB.MaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DB.ConnMaxLifetime = time.Duration(value) * time.Second
		}
	}
	return cfg
}
