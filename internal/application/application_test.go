package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/maintrack/internal/config"
	"github.com/JonMunkholm/maintrack/internal/core"
)

func TestOpen_InMemory(t *testing.T) {
	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)

	app, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Postgres)
	require.NotNil(t, app.Service)

	e, err := app.Service.Create(context.Background(), "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "CUST001", e.ID)

	assert.Equal(t, cfg.Upload.MaxConcurrent, app.Service.ImportLimiterStatus().MaxConcurrent)
	assert.Equal(t, core.PruneConfig{RetentionDays: 90, BatchSize: 5000, Interval: cfg.Activity.Interval}, app.PruneConfig())
}

func TestOpen_BadDatabaseURL(t *testing.T) {
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		if key == "DATABASE_URL" {
			return "postgres://%zz", true
		}
		return "", false
	})
	require.NoError(t, err)

	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestAllocationRetries(t *testing.T) {
	assert.Equal(t, -1, allocationRetries(0))
	assert.Equal(t, 3, allocationRetries(3))
	assert.Equal(t, 7, allocationRetries(7))
}
