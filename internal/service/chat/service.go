package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/session"
	"github.com/vovakirdan/wizzychat/internal/store"
)

// MaxGroupNameLength is the longest accepted group name, in characters.
const MaxGroupNameLength = 32

// Common errors for chat operations.
var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrSelfMessage      = errors.New("cannot send a direct message to yourself")
	ErrNotMember        = errors.New("not a member of this group")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoSuchGroup      = errors.New("group not found")
	ErrGroupNameTaken   = errors.New("group name already taken")
	ErrInvalidGroupName = errors.New("invalid group name")
)

// Service implements the chat operations a logged-in session can trigger.
// Every call resolves the session's backend, so sessions on different backends never share data.
type Service struct {
	backends *backend.Set
}

// New creates a new chat Service.
func New(backends *backend.Set) *Service {
	return &Service{
		backends: backends,
	}
}

func (s *Service) resolve(sess *session.Session) (*backend.Backend, error) {
	return s.backends.Get(sess.Backend)
}

// OnlineUsers lists online users other than the caller.
func (s *Service) OnlineUsers(ctx context.Context, sess *session.Session) ([]string, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}

	users, err := b.Presence.ListOnline(ctx, sess.Username)
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}
	return users, nil
}

// SendDirect appends a direct message from the caller to peer.
func (s *Service) SendDirect(ctx context.Context, sess *session.Session, peer, text string) (*store.Message, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if peer == sess.Username {
		return nil, ErrSelfMessage
	}
	if err := userExists(ctx, b, peer); err != nil {
		return nil, err
	}

	msg, err := b.Store.AppendMessage(ctx, sess.Username, peer, text, false)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// DirectHistory returns the conversation between the caller and peer with IDs above afterID.
func (s *Service) DirectHistory(ctx context.Context, sess *session.Session, peer string, afterID int64) ([]*store.Message, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}
	if err := userExists(ctx, b, peer); err != nil {
		return nil, err
	}

	messages, err := b.Store.DirectHistory(ctx, sess.Username, peer, afterID)
	if err != nil {
		return nil, fmt.Errorf("direct history: %w", err)
	}
	return messages, nil
}

// CreateGroup creates a group owned by the caller.
func (s *Service) CreateGroup(ctx context.Context, sess *session.Session, name string) (*store.Group, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxGroupNameLength {
		return nil, ErrInvalidGroupName
	}
	// Group names appear as a path segment in the API.
	if strings.ContainsFunc(name, func(r rune) bool { return r == '/' || unicode.IsControl(r) }) {
		return nil, ErrInvalidGroupName
	}

	group, err := b.Store.CreateGroup(ctx, name, sess.Username)
	if err != nil {
		if errors.Is(err, store.ErrGroupNameTaken) {
			return nil, ErrGroupNameTaken
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// JoinGroup adds the caller to a group. Joining twice is not an error.
func (s *Service) JoinGroup(ctx context.Context, sess *session.Session, name string) error {
	b, err := s.resolve(sess)
	if err != nil {
		return err
	}
	return addMember(ctx, b, name, sess.Username)
}

// AddMember adds another user to a group the caller belongs to.
func (s *Service) AddMember(ctx context.Context, sess *session.Session, name, username string) error {
	b, err := s.resolve(sess)
	if err != nil {
		return err
	}
	if _, err := requireMember(ctx, b, name, sess.Username); err != nil {
		return err
	}
	if err := userExists(ctx, b, username); err != nil {
		return err
	}
	return addMember(ctx, b, name, username)
}

// Groups lists the groups the caller belongs to.
func (s *Service) Groups(ctx context.Context, sess *session.Session) ([]string, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}

	groups, err := b.Store.GroupsFor(ctx, sess.Username)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// GroupInfo returns a group with its members.
func (s *Service) GroupInfo(ctx context.Context, sess *session.Session, name string) (*store.Group, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}
	return getGroup(ctx, b, name)
}

// SendGroup appends a message from the caller to a group they belong to.
func (s *Service) SendGroup(ctx context.Context, sess *session.Session, name, text string) (*store.Message, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := requireMember(ctx, b, name, sess.Username); err != nil {
		return nil, err
	}

	msg, err := b.Store.AppendMessage(ctx, sess.Username, name, text, true)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// GroupHistory returns a group's messages with IDs above afterID. Only members may read it.
func (s *Service) GroupHistory(ctx context.Context, sess *session.Session, name string, afterID int64) ([]*store.Message, error) {
	b, err := s.resolve(sess)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, b, name, sess.Username); err != nil {
		return nil, err
	}

	messages, err := b.Store.GroupHistory(ctx, name, afterID)
	if err != nil {
		return nil, fmt.Errorf("group history: %w", err)
	}
	return messages, nil
}

func userExists(ctx context.Context, b *backend.Backend, username string) error {
	if _, err := b.Store.GetUser(ctx, username); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	return nil
}

func getGroup(ctx context.Context, b *backend.Backend, name string) (*store.Group, error) {
	group, err := b.Store.GetGroup(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNoSuchGroup) {
			return nil, ErrNoSuchGroup
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

func requireMember(ctx context.Context, b *backend.Backend, name, username string) (*store.Group, error) {
	group, err := getGroup(ctx, b, name)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(group.Members, username) {
		return nil, ErrNotMember
	}
	return group, nil
}

func addMember(ctx context.Context, b *backend.Backend, name, username string) error {
	if err := b.Store.AddMember(ctx, name, username); err != nil {
		if errors.Is(err, store.ErrNoSuchGroup) {
			return ErrNoSuchGroup
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}
