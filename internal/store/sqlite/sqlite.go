package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// schema is applied on every open; statements are idempotent.
// "groups" is quoted because GROUPS is an SQLite keyword.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	online        BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	sender   TEXT NOT NULL,
	receiver TEXT NOT NULL,
	body     TEXT NOT NULL,
	sent_at  DATETIME NOT NULL,
	is_group BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS "groups" (
	name       TEXT PRIMARY KEY,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_name TEXT NOT NULL,
	username   TEXT NOT NULL,
	joined_at  DATETIME NOT NULL,
	PRIMARY KEY (group_name, username),
	FOREIGN KEY (group_name) REFERENCES "groups"(name)
);

CREATE INDEX IF NOT EXISTS idx_users_online ON users(online);
CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(is_group, sender, receiver, id);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(is_group, receiver, id);
CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(username);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// ==== UserStore implementation ====

// CreateUser creates a new offline user.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, online, created_at)
		VALUES (?, ?, 0, ?)
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, username, passwordHash, now); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUser(ctx, username)
}

// GetUser retrieves a user by username.
func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT username, password_hash, online, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Online,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// SetOnline updates the online flag; unknown usernames affect no rows.
func (s *SQLiteStore) SetOnline(ctx context.Context, username string, online bool) error {
	query := `UPDATE users SET online = ? WHERE username = ?`
	if _, err := s.db.ExecContext(ctx, query, online, username); err != nil {
		return fmt.Errorf("update online: %w", err)
	}
	return nil
}

// ListOnline lists online usernames except exclude.
func (s *SQLiteStore) ListOnline(ctx context.Context, exclude string) ([]string, error) {
	query := `
		SELECT username FROM users
		WHERE online = 1 AND username != ?
	`
	rows, err := s.db.QueryContext(ctx, query, exclude)
	if err != nil {
		return nil, fmt.Errorf("query online users: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan online user: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate online users: %w", err)
	}

	// Unicode-aware order shared with the other backends.
	store.SortUsernames(names)
	return names, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and returns it with its sequence ID.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sender, receiver, text string, isGroup bool) (*store.Message, error) {
	query := `
		INSERT INTO messages (sender, receiver, body, sent_at, is_group)
		VALUES (?, ?, ?, ?, ?)
	`
	msg := &store.Message{
		Sender:   sender,
		Receiver: receiver,
		Text:     text,
		SentAt:   time.Now().UTC(),
		IsGroup:  isGroup,
	}
	result, err := s.db.ExecContext(ctx, query, msg.Sender, msg.Receiver, msg.Text, msg.SentAt, msg.IsGroup)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return msg, nil
}

// DirectHistory returns the conversation between a and b.
func (s *SQLiteStore) DirectHistory(ctx context.Context, a, b string, afterID int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender, receiver, body, sent_at, is_group
		FROM messages
		WHERE is_group = 0
		  AND ((sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?))
		  AND id > ?
		ORDER BY id ASC
	`
	return s.queryMessages(ctx, query, a, b, b, a, afterID)
}

// GroupHistory returns messages sent to a group.
func (s *SQLiteStore) GroupHistory(ctx context.Context, group string, afterID int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender, receiver, body, sent_at, is_group
		FROM messages
		WHERE is_group = 1 AND receiver = ? AND id > ?
		ORDER BY id ASC
	`
	return s.queryMessages(ctx, query, group, afterID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Text, &msg.SentAt, &msg.IsGroup); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the creator as its first member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, creator string) (*store.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	now := time.Now().UTC()
	query := `INSERT INTO "groups" (name, created_by, created_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, name, creator, now); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrGroupNameTaken
		}
		return nil, fmt.Errorf("insert group: %w", err)
	}

	memberQuery := `INSERT INTO group_members (group_name, username, joined_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, memberQuery, name, creator, now); err != nil {
		return nil, fmt.Errorf("add creator to members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetGroup(ctx, name)
}

// GetGroup retrieves a group and its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, name string) (*store.Group, error) {
	query := `SELECT name, created_by, created_at FROM "groups" WHERE name = ?`
	var group store.Group
	err := s.db.QueryRowContext(ctx, query, name).Scan(&group.Name, &group.CreatedBy, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoSuchGroup
		}
		return nil, fmt.Errorf("query group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT username FROM group_members
		WHERE group_name = ?
		ORDER BY rowid ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	group.Members = make([]string, 0)
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		group.Members = append(group.Members, member)
	}

	return &group, rows.Err()
}

// AddMember adds a user to a group; existing members are ignored.
func (s *SQLiteStore) AddMember(ctx context.Context, name, username string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM "groups" WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNoSuchGroup
		}
		return fmt.Errorf("query group: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO group_members (group_name, username, joined_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, name, username, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}

	return nil
}

// GroupsFor lists the groups a user belongs to.
func (s *SQLiteStore) GroupsFor(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT group_name FROM group_members
		WHERE username = ?
		ORDER BY group_name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, name)
	}

	return groups, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
