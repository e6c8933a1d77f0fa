package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpense/internal/config"
	applog "xpense/internal/log"
	mem "xpense/internal/sheets/memory"
)

func testLogger(t *testing.T) *applog.Logger {
	t.Helper()
	lc := applog.DefaultConfig()
	lc.Output = &bytes.Buffer{}
	logger, err := applog.New(lc)
	require.NoError(t, err)
	return logger
}

func TestNewWriterWithoutSpreadsheet(t *testing.T) {
	w, err := newWriter(context.Background(), &config.Config{}, testLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &mem.Store{}, w)
}

func TestNewWriterMissingCredentials(t *testing.T) {
	_, err := newWriter(context.Background(), &config.Config{
		GoogleSpreadsheetID: "123",
		GoogleSheetName:     "Expenses",
	}, testLogger(t))
	assert.ErrorContains(t, err, "missing google credentials")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	err := run(context.Background(), &config.Config{Port: "8081", SyncBatchSize: 0}, testLogger(t))
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		Port:          "8081",
		SQLiteDBPath:  t.TempDir() + "/xpense.db",
		StoreTimeout:  time.Second,
		Timezone:      "UTC",
		SyncBatchSize: 10,
		SyncInterval:  time.Hour,
		LogLevel:      "info",
		LogFormat:     "text",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, testLogger(t)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
