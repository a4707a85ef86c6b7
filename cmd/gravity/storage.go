package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/internal/storage/memory"
	pgstorage "github.com/gravitysim/gravity/internal/storage/postgres"
	sqlitestorage "github.com/gravitysim/gravity/internal/storage/sqlite"
	wsstorage "github.com/gravitysim/gravity/internal/storage/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// createStorageBackend builds the configured backend. Type "none" disables
// recording and returns a nil backend.
func createStorageBackend(storageCfg config.StorageConfig, ids *cache.IDCache, logger *slog.Logger, dbLogger zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "none":
		logger.Info("Recording disabled")
		return nil, nil

	case "postgres":
		logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			IDCache:     ids,
			Logger:      logger,
			DBLogger:    dbLogger,
			FallbackDir: storageCfg.SQLite.OutputDir,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			OutputDir:    storageCfg.SQLite.OutputDir,
		}, ids, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized")
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/ingest"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:        wsURL,
			Secret:     secret,
			AckTimeout: storageCfg.WebSocket.AckTimeout,
		}, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
