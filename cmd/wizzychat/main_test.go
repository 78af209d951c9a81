package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	content := fmt.Sprintf(`storage:
  default: sqlite
  backends: [sqlite, document]
  sqlite_path: %s
  document_path: %s
password:
  algorithm: bcrypt
  bcrypt_cost: 4
`, filepath.Join(dir, "chat.db"), filepath.Join(dir, "chat.json"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserAdd(t *testing.T) {
	path := writeTestConfig(t)

	out, err := run(t, "secret\n", "--config", path, "--log-level", "error", "user", "add", "alice")
	if err != nil {
		t.Fatalf("user add: %v", err)
	}
	if !strings.Contains(out, "registered alice on sqlite") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(t, "other\n", "--config", path, "--log-level", "error", "user", "add", "alice"); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	out, err = run(t, "secret\n", "--config", path, "--log-level", "error", "--backend", "document", "user", "add", "alice")
	if err != nil {
		t.Fatalf("user add on document: %v", err)
	}
	if !strings.Contains(out, "registered alice on document") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUserOnlineEmpty(t *testing.T) {
	path := writeTestConfig(t)

	out, err := run(t, "", "--config", path, "--log-level", "error", "user", "online")
	if err != nil {
		t.Fatalf("user online: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no online users, got %q", out)
	}
}

func TestUnknownBackendFlag(t *testing.T) {
	path := writeTestConfig(t)

	if _, err := run(t, "", "--config", path, "--backend", "gorm", "user", "online"); err == nil {
		t.Fatal("expected a disabled backend to be rejected")
	}
}

func TestReadPasswordFromPipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("hunter2\r\nignored\n"), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("read password: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("expected hunter2, got %q", got)
	}

	got, err = readPassword(strings.NewReader("no-newline"), &bytes.Buffer{})
	if err != nil || got != "no-newline" {
		t.Fatalf("expected no-newline, got %q, %v", got, err)
	}
}
