package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeTestConfig(t *testing.T, path, broker string) {
	t.Helper()
	body := "broker:\n  url: \"" + broker + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0640); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, "tcp://initial:1883")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, zap.NewNop(), func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	go w.Run(ctx)

	// Give the watcher a moment to register before modifying the file.
	time.Sleep(100 * time.Millisecond)
	writeTestConfig(t, path, "tcp://changed:1883")

	select {
	case cfg := <-reloaded:
		if cfg.Broker.URL != "tcp://changed:1883" {
			t.Errorf("reloaded URL = %q, want changed value", cfg.Broker.URL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not deliver the reloaded config")
	}
}

func TestWatcher_InvalidConfigKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, "tcp://initial:1883")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, zap.NewNop(), func(cfg *Config) {
		reloaded <- cfg
	})
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	// Broken YAML must not reach the callback.
	if err := os.WriteFile(path, []byte("broker: ["), 0640); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("callback received invalid config: %+v", cfg)
	case <-time.After(1 * time.Second):
		// Expected: nothing delivered.
	}
}
