// Package session defines the per-login context passed to every chat operation.
package session

import "github.com/google/uuid"

// Session identifies a logged-in user and the backend that user chose.
type Session struct {
	ID       string
	Username string
	Backend  string
}

// New creates a session with a fresh ID.
func New(username, backend string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Username: username,
		Backend:  backend,
	}
}
