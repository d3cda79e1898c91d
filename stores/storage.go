package stores

import (
	"drawboard-server/config"
	"drawboard-server/core"
	"drawboard-server/stores/memory"
	"drawboard-server/stores/postgres"
	"drawboard-server/stores/redis"
	"drawboard-server/stores/sqlite"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.UserStore
	core.DrawingStore
	io.Closer
}

// GetStore builds the backend selected by cfg.StorageType.
func GetStore(cfg config.Config) (Store, error) {
	var store Store
	var err error

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL environment variable must be set for postgres storage type")
		}
		store, err = postgres.NewStore(cfg.DatabaseURL, cfg.DB)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL environment variable must be set for redis storage type")
		}
		storageField["keyPrefix"] = cfg.RedisPrefix
		store, err = redis.NewStore(cfg.RedisURL, cfg.RedisPrefix)
	case "memory", "":
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
