package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/vovakirdan/wizzychat/internal/store"
	"github.com/vovakirdan/wizzychat/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(Config{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestGormStoreConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestGormStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "chat.db")

	s, err := New(Config{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := s.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateGroup(ctx, "team", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := s.AddMember(ctx, "team", "bob"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(Config{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	group, err := reopened.GetGroup(ctx, "team")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(group.Members) != 2 || group.Members[0] != "alice" || group.Members[1] != "bob" {
		t.Fatalf("unexpected members after reopen: %v", group.Members)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"ERROR", logger.Error},
		{"info", logger.Info},
		{"", logger.Warn},
		{"bogus", logger.Warn},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
