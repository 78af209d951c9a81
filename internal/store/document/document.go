// Package document implements store.Store on top of a single JSON document.
//
// Every operation re-reads the file and every mutation rewrites it through a
// temporary file that is synced and renamed over the target, so a crash
// mid-write leaves the previous document intact. On the OS filesystem every
// cycle also holds an advisory lock on "<path>.lock", so several processes
// may share one document.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/vovakirdan/wizzychat/internal/store"
)

type userDoc struct {
	PasswordHash string    `json:"password_hash"`
	Online       bool      `json:"online"`
	CreatedAt    time.Time `json:"created_at"`
}

type messageDoc struct {
	ID       int64     `json:"id"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
	IsGroup  bool      `json:"is_group"`
}

type groupDoc struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Members   []string  `json:"members"`
}

// document is the on-disk layout.
type document struct {
	Users         map[string]*userDoc  `json:"users"`
	Messages      []*messageDoc        `json:"messages"`
	Groups        map[string]*groupDoc `json:"groups"`
	NextMessageID int64                `json:"next_message_id"`
}

func newDocument() *document {
	return &document{
		Users:         make(map[string]*userDoc),
		Messages:      make([]*messageDoc, 0),
		Groups:        make(map[string]*groupDoc),
		NextMessageID: 1,
	}
}

// errUnchanged aborts an update without rewriting the document.
var errUnchanged = errors.New("document unchanged")

// normalize repairs fields a hand-edited or older document may lack.
// Null entries cannot be repaired and are reported.
func (d *document) normalize() error {
	if d.Users == nil {
		d.Users = make(map[string]*userDoc)
	}
	if d.Groups == nil {
		d.Groups = make(map[string]*groupDoc)
	}
	if d.Messages == nil {
		d.Messages = make([]*messageDoc, 0)
	}
	for name, u := range d.Users {
		if u == nil {
			return fmt.Errorf("user %q is null", name)
		}
	}
	for name, g := range d.Groups {
		if g == nil {
			return fmt.Errorf("group %q is null", name)
		}
	}
	for i, m := range d.Messages {
		if m == nil {
			return fmt.Errorf("message at index %d is null", i)
		}
		if m.ID >= d.NextMessageID {
			d.NextMessageID = m.ID + 1
		}
	}
	if d.NextMessageID < 1 {
		d.NextMessageID = 1
	}
	return nil
}

// fileLock is the cross-process lock held around each load/save cycle.
type fileLock interface {
	Lock() error
	RLock() error
	Unlock() error
}

// noLock is used for in-memory filesystems, which no other process can see.
type noLock struct{}

func (noLock) Lock() error   { return nil }
func (noLock) RLock() error  { return nil }
func (noLock) Unlock() error { return nil }

// DocumentStore implements store.Store backed by a JSON file.
type DocumentStore struct {
	fs   afero.Fs
	path string

	// mu serialises cycles within the process; lock serialises them across processes.
	mu   sync.Mutex
	lock fileLock
}

// New opens (or creates) the document at path on the OS filesystem.
func New(path string) (*DocumentStore, error) {
	return NewWithFs(afero.NewOsFs(), path)
}

// NewWithFs opens the document at path on the given filesystem.
// An unreadable or corrupt document is reported instead of being replaced.
func NewWithFs(fs afero.Fs, path string) (*DocumentStore, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	s := &DocumentStore{fs: fs, path: path, lock: noLock{}}
	if _, ok := fs.(*afero.OsFs); ok {
		s.lock = flock.New(path + ".lock")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock document: %w", err)
	}
	defer s.lock.Unlock()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if !exists {
		if err := s.save(newDocument()); err != nil {
			return nil, err
		}
		return s, nil
	}

	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; the document is not held open between operations.
func (s *DocumentStore) Close() error {
	return nil
}

func (s *DocumentStore) load() (*document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newDocument(), nil
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	// Documents are only ever written whole, so an empty file is damage.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("decode document %s: file is empty", s.path)
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", s.path, err)
	}
	if err := doc.normalize(); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *DocumentStore) save(doc *document) (err error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}
	if err = s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// view runs fn against a freshly loaded document under a shared lock.
func (s *DocumentStore) view(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn against a freshly loaded document under an exclusive lock and
// persists it if fn succeeds. fn returns errUnchanged to skip the write.
func (s *DocumentStore) update(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	return s.save(doc)
}

// ==== UserStore implementation ====

// CreateUser creates a new offline user.
func (s *DocumentStore) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	var user *store.User
	err := s.update(func(doc *document) error {
		if _, exists := doc.Users[username]; exists {
			return store.ErrUsernameTaken
		}
		u := &userDoc{
			PasswordHash: passwordHash,
			CreatedAt:    time.Now().UTC(),
		}
		doc.Users[username] = u
		user = toUser(username, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by username.
func (s *DocumentStore) GetUser(_ context.Context, username string) (*store.User, error) {
	var user *store.User
	err := s.view(func(doc *document) error {
		u, ok := doc.Users[username]
		if !ok {
			return store.ErrUserNotFound
		}
		user = toUser(username, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetOnline updates the online flag; unknown usernames leave the document untouched.
func (s *DocumentStore) SetOnline(_ context.Context, username string, online bool) error {
	return s.update(func(doc *document) error {
		u, ok := doc.Users[username]
		if !ok || u.Online == online {
			return errUnchanged
		}
		u.Online = online
		return nil
	})
}

// ListOnline lists online usernames except exclude.
func (s *DocumentStore) ListOnline(_ context.Context, exclude string) ([]string, error) {
	names := make([]string, 0)
	err := s.view(func(doc *document) error {
		for name, u := range doc.Users {
			if u.Online && name != exclude {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	store.SortUsernames(names)
	return names, nil
}

func toUser(username string, u *userDoc) *store.User {
	return &store.User{
		Username:     username,
		PasswordHash: u.PasswordHash,
		Online:       u.Online,
		CreatedAt:    u.CreatedAt,
	}
}

// ==== MessageStore implementation ====

// AppendMessage appends a message to the log.
func (s *DocumentStore) AppendMessage(_ context.Context, sender, receiver, text string, isGroup bool) (*store.Message, error) {
	var msg *store.Message
	err := s.update(func(doc *document) error {
		m := &messageDoc{
			ID:       doc.NextMessageID,
			Sender:   sender,
			Receiver: receiver,
			Text:     text,
			SentAt:   time.Now().UTC(),
			IsGroup:  isGroup,
		}
		doc.NextMessageID++
		doc.Messages = append(doc.Messages, m)
		msg = toMessage(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DirectHistory returns the conversation between a and b.
func (s *DocumentStore) DirectHistory(_ context.Context, a, b string, afterID int64) ([]*store.Message, error) {
	return s.filterMessages(afterID, func(m *messageDoc) bool {
		return !m.IsGroup &&
			((m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a))
	})
}

// GroupHistory returns messages sent to a group.
func (s *DocumentStore) GroupHistory(_ context.Context, group string, afterID int64) ([]*store.Message, error) {
	return s.filterMessages(afterID, func(m *messageDoc) bool {
		return m.IsGroup && m.Receiver == group
	})
}

func (s *DocumentStore) filterMessages(afterID int64, match func(m *messageDoc) bool) ([]*store.Message, error) {
	messages := make([]*store.Message, 0)
	err := s.view(func(doc *document) error {
		for _, m := range doc.Messages {
			if m.ID > afterID && match(m) {
				messages = append(messages, toMessage(m))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// The log is appended in ID order; sorting guards against hand-edited files.
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func toMessage(m *messageDoc) *store.Message {
	return &store.Message{
		ID:       m.ID,
		Sender:   m.Sender,
		Receiver: m.Receiver,
		Text:     m.Text,
		SentAt:   m.SentAt,
		IsGroup:  m.IsGroup,
	}
}

// ==== GroupStore implementation ====

// CreateGroup creates a group with the creator as its first member.
func (s *DocumentStore) CreateGroup(_ context.Context, name, creator string) (*store.Group, error) {
	var group *store.Group
	err := s.update(func(doc *document) error {
		if _, exists := doc.Groups[name]; exists {
			return store.ErrGroupNameTaken
		}
		g := &groupDoc{
			CreatedBy: creator,
			CreatedAt: time.Now().UTC(),
			Members:   []string{creator},
		}
		doc.Groups[name] = g
		group = toGroup(name, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup retrieves a group and its members.
func (s *DocumentStore) GetGroup(_ context.Context, name string) (*store.Group, error) {
	var group *store.Group
	err := s.view(func(doc *document) error {
		g, ok := doc.Groups[name]
		if !ok {
			return store.ErrNoSuchGroup
		}
		group = toGroup(name, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// AddMember adds a user to a group; existing members leave the document untouched.
func (s *DocumentStore) AddMember(_ context.Context, name, username string) error {
	return s.update(func(doc *document) error {
		g, ok := doc.Groups[name]
		if !ok {
			return store.ErrNoSuchGroup
		}
		if slices.Contains(g.Members, username) {
			return errUnchanged
		}
		g.Members = append(g.Members, username)
		return nil
	})
}

// GroupsFor lists the groups a user belongs to.
func (s *DocumentStore) GroupsFor(_ context.Context, username string) ([]string, error) {
	groups := make([]string, 0)
	err := s.view(func(doc *document) error {
		for name, g := range doc.Groups {
			if slices.Contains(g.Members, username) {
				groups = append(groups, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(groups)
	return groups, nil
}

func toGroup(name string, g *groupDoc) *store.Group {
	return &store.Group{
		Name:      name,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		Members:   slices.Clone(g.Members),
	}
}

// Ensure DocumentStore implements store.Store
var _ store.Store = (*DocumentStore)(nil)
