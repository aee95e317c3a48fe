package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/didac-crst/mockexchange-api/internal/config"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_loop_sec: 5\n"), 0o644))

	w, err := config.NewWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan config.Config, 1)
	errs := make(chan error, 1)
	go w.Start(ctx, func(c config.Config) { updates <- c }, func(e error) { errs <- e })

	time.Sleep(20 * time.Millisecond) // let the watcher goroutine start
	require.NoError(t, os.WriteFile(path, []byte("tick_loop_sec: 9\n"), 0o644))

	select {
	case cfg := <-updates:
		require.Equal(t, 9, cfg.TickLoopSec)
	case err := <-errs:
		t.Fatalf("unexpected reload error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
