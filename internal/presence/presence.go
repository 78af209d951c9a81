// Package presence tracks which users are currently logged in.
package presence

import (
	"context"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// Tracker records the online flag of users and lists who is online.
type Tracker interface {
	// SetOnline sets the online flag for username. Unknown users are ignored.
	SetOnline(ctx context.Context, username string, online bool) error

	// ListOnline returns online usernames except exclude, sorted case-insensitively.
	ListOnline(ctx context.Context, exclude string) ([]string, error)
}

// StoreTracker keeps presence in the backend's own users table.
type StoreTracker struct {
	users store.UserStore
}

// NewStoreTracker creates a tracker backed by a user store.
func NewStoreTracker(users store.UserStore) *StoreTracker {
	return &StoreTracker{users: users}
}

// SetOnline implements Tracker.
func (t *StoreTracker) SetOnline(ctx context.Context, username string, online bool) error {
	return t.users.SetOnline(ctx, username, online)
}

// ListOnline implements Tracker.
func (t *StoreTracker) ListOnline(ctx context.Context, exclude string) ([]string, error) {
	return t.users.ListOnline(ctx, exclude)
}

var _ Tracker = (*StoreTracker)(nil)
