package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jerseyhouse/storefront/internal/config"
)

func TestMemoryBackendIsReady(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), config.Config{DataBackend: "memory", OTPMaxAttempts: 3}, logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	if err := a.Ready(context.Background()); err != nil {
		t.Fatalf("memory backend should be ready: %v", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(context.Background(), config.Config{DataBackend: "sqlite"}, logger); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}
