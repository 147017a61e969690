// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianops/voyagesim/internal/config"
	"github.com/meridianops/voyagesim/internal/database"
	gormstorage "github.com/meridianops/voyagesim/internal/storage/gorm"
	"github.com/meridianops/voyagesim/internal/storage/memory"
	sqlitestorage "github.com/meridianops/voyagesim/internal/storage/sqlite"
	"github.com/meridianops/voyagesim/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, zlog zerolog.Logger, slogger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		mgr := database.NewManager(zlog)
		if err := mgr.Connect(); err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		if err := mgr.Setup(); err != nil {
			return nil, fmt.Errorf("setting up database: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:     mgr.DB,
			Logger: zlog,
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.Sqlite.DumpPath,
			DumpInterval: time.Duration(cfg.Sqlite.DumpIntervalSec) * time.Second,
		}, zlog)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.Websocket.URL,
			Secret: cfg.Websocket.Secret,
		}, slogger), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
