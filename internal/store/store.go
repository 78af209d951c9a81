package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUserNotFound is returned when a username does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrGroupNameTaken is returned when a group name already exists.
	ErrGroupNameTaken = errors.New("group name already taken")
	// ErrNoSuchGroup is returned when a group does not exist.
	ErrNoSuchGroup = errors.New("no such group")
)

// User represents a registered account.
type User struct {
	Username     string
	PasswordHash string
	Online       bool
	CreatedAt    time.Time
}

// Message represents a persisted chat message.
// Receiver is a username for direct messages and a group name for group messages.
type Message struct {
	ID       int64
	Sender   string
	Receiver string
	Text     string
	SentAt   time.Time
	IsGroup  bool
}

// Group represents a named group chat.
type Group struct {
	Name      string
	CreatedBy string
	CreatedAt time.Time
	Members   []string // in join order
}

// UserStore handles credential and presence persistence.
type UserStore interface {
	// CreateUser creates a new offline user. Returns ErrUsernameTaken on duplicates.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUser retrieves a user by username. Returns ErrUserNotFound if absent.
	GetUser(ctx context.Context, username string) (*User, error)

	// SetOnline updates the online flag. Unknown usernames are ignored.
	SetOnline(ctx context.Context, username string, online bool) error

	// ListOnline lists online usernames except exclude, sorted case-insensitively.
	ListOnline(ctx context.Context, exclude string) ([]string, error)
}

// MessageStore handles the append-only message log.
type MessageStore interface {
	// AppendMessage stores a message with a fresh sequence ID and the current time.
	AppendMessage(ctx context.Context, sender, receiver, text string, isGroup bool) (*Message, error)

	// DirectHistory returns direct messages exchanged between a and b in either direction,
	// ordered by ID. Only messages with ID > afterID are returned.
	DirectHistory(ctx context.Context, a, b string, afterID int64) ([]*Message, error)

	// GroupHistory returns messages sent to the group ordered by ID.
	// Only messages with ID > afterID are returned.
	GroupHistory(ctx context.Context, group string, afterID int64) ([]*Message, error)
}

// GroupStore handles group persistence.
type GroupStore interface {
	// CreateGroup creates a group with the creator as its only member.
	// Returns ErrGroupNameTaken on duplicates.
	CreateGroup(ctx context.Context, name, creator string) (*Group, error)

	// GetGroup retrieves a group with its members. Returns ErrNoSuchGroup if absent.
	GetGroup(ctx context.Context, name string) (*Group, error)

	// AddMember adds a user to a group. Adding an existing member is a no-op.
	// Returns ErrNoSuchGroup if the group does not exist.
	AddMember(ctx context.Context, name, username string) error

	// GroupsFor lists names of groups the user belongs to, sorted by name.
	GroupsFor(ctx context.Context, username string) ([]string, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	GroupStore

	// Close releases the underlying resources.
	Close() error
}
