package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Storage.SQLitePath = filepath.Join(dir, "chat.db")
	cfg.Storage.DocumentPath = filepath.Join(dir, "chat.json")
	cfg.Storage.Gorm.DSN = filepath.Join(dir, "chat-gorm.db")
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	return &cfg
}

func TestAppServesAndStops(t *testing.T) {
	logger := zerolog.New(nil)
	a, err := New(context.Background(), testConfig(t), &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/backends", nil)
	resp := httptest.NewRecorder()
	a.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestNewRejectsBadHasher(t *testing.T) {
	cfg := testConfig(t)
	cfg.Password.Algorithm = "md5"

	logger := zerolog.New(nil)
	if _, err := New(context.Background(), cfg, &logger); err == nil {
		t.Fatal("expected an error for an unknown password algorithm")
	}
}
