package http

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Body.String() != "ok" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if got := resp.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestBackends(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/backends", "", nil)
	expectStatus(t, resp, http.StatusOK)

	got := decode[BackendsResponse](t, resp)
	if !reflect.DeepEqual(got.Backends, []string{"document", "sqlite"}) || got.Default != "sqlite" {
		t.Fatalf("unexpected backends: %+v", got)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: " alice ", Password: "secret"})
	expectStatus(t, resp, http.StatusCreated)
	reg := decode[RegisterResponse](t, resp)
	if reg.Username != "alice" || reg.Backend != "sqlite" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	// Duplicate registration keeps the first password.
	resp = env.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "other"})
	expectStatus(t, resp, http.StatusConflict)

	resp = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "other"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "secret"})
	expectStatus(t, resp, http.StatusOK)
	login := decode[AuthResponse](t, resp)
	if login.Token == "" || login.Username != "alice" || login.Backend != "sqlite" || login.SessionID == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest},
		{"blank username", RegisterRequest{Username: "   ", Password: "pw"}, http.StatusBadRequest},
		{"too long", RegisterRequest{Username: "abcdefghijklmnop", Password: "pw"}, http.StatusBadRequest},
		{"slash", RegisterRequest{Username: "a/b", Password: "pw"}, http.StatusBadRequest},
		{"unknown backend", RegisterRequest{Username: "alice", Password: "pw", Backend: "mongo"}, http.StatusBadRequest},
		{"not json", "plain", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/register", "", tt.body)
			expectStatus(t, resp, tt.want)
		})
	}
}

func TestLoginUnknownUserMatchesWrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "alice")

	unknown := env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "ghost", Password: "password123"})
	wrong := env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "nope"})

	expectStatus(t, unknown, http.StatusUnauthorized)
	expectStatus(t, wrong, http.StatusUnauthorized)
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("responses must not reveal which part was wrong: %s vs %s", unknown.Body.String(), wrong.Body.String())
	}
}

func TestLoginOnSecondBackend(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "pw", Backend: "document"})
	expectStatus(t, resp, http.StatusCreated)

	// Not present on the default backend.
	resp = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "pw"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "pw", Backend: "document"})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[AuthResponse](t, resp); got.Backend != "document" {
		t.Fatalf("expected document session, got %+v", got)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	resp := env.do(t, http.MethodGet, "/api/users/online", bob, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[OnlineUsersResponse](t, resp); !reflect.DeepEqual(got.Users, []string{"alice"}) {
		t.Fatalf("expected alice online, got %v", got.Users)
	}

	resp = env.do(t, http.MethodPost, "/api/logout", alice, nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = env.do(t, http.MethodGet, "/api/users/online", bob, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[OnlineUsersResponse](t, resp); len(got.Users) != 0 {
		t.Fatalf("expected nobody else online, got %v", got.Users)
	}

	resp = env.do(t, http.MethodPost, "/api/logout", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}
