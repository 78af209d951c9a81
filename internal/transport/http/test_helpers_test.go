package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/config"
	"github.com/vovakirdan/wizzychat/internal/presence"
	"github.com/vovakirdan/wizzychat/internal/service/chat"
	"github.com/vovakirdan/wizzychat/internal/store/document"
	"github.com/vovakirdan/wizzychat/internal/store/sqlite"
)

type testEnv struct {
	handler stdhttp.Handler
	auth    *auth.Service
	set     *backend.Set
}

// newTestEnv builds a server over an in-memory sqlite backend (default) and a
// MemMapFs document backend.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	rel, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	doc, err := document.NewWithFs(afero.NewMemMapFs(), "/chat.json")
	if err != nil {
		t.Fatalf("failed to create document store: %v", err)
	}

	set, err := backend.NewSet("sqlite",
		&backend.Backend{Name: "sqlite", Store: rel, Presence: presence.NewStoreTracker(rel)},
		&backend.Backend{Name: "document", Store: doc, Presence: presence.NewStoreTracker(doc)},
	)
	if err != nil {
		t.Fatalf("failed to create backend set: %v", err)
	}
	t.Cleanup(func() { _ = set.Close() })

	cfg := config.Default()
	cfg.Server.Addr = ":0"
	cfg.Server.ReadHeaderTimeout = time.Second
	cfg.Limits.MessagesPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	hasher := auth.BcryptHasher{Cost: 4}
	authService := auth.NewService(set, hasher, jwtConfig)

	disabledLogger := zerolog.New(nil)
	server := NewServer(authService, chat.New(set), set, &cfg, &disabledLogger)

	return &testEnv{handler: server.Handler, auth: authService, set: set}
}

// do sends a request straight to the handler. body is marshalled to JSON when not nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

// login registers username on the default backend and returns a token.
func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()

	if _, err := e.auth.Register(ctx, "", username, "password123"); err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	token, _, err := e.auth.Login(ctx, "", username, "password123")
	if err != nil {
		t.Fatalf("failed to login %s: %v", username, err)
	}
	return token
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}
