package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/storage/memory"
	pgstorage "github.com/gravitysim/gravity/internal/storage/postgres"
	sqlitestorage "github.com/gravitysim/gravity/internal/storage/sqlite"
	wsstorage "github.com/gravitysim/gravity/internal/storage/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPToWS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://example.com/", "wss://example.com"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in), tt.in)
	}
}

func TestCreateStorageBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	create := func(cfg config.StorageConfig) (any, error) {
		return createStorageBackend(cfg, cache.NewIDCache(), logger, zerolog.Nop())
	}

	b, err := create(config.StorageConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = create(config.StorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = create(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = create(config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{OutputDir: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)

	b, err = create(config.StorageConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/ingest"}})
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)

	b, err = create(config.StorageConfig{Type: "postgres"})
	require.NoError(t, err)
	assert.IsType(t, &pgstorage.Backend{}, b)

	_, err = create(config.StorageConfig{Type: "tape"})
	assert.Error(t, err)
}
