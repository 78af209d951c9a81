package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/session"
	"github.com/vovakirdan/wizzychat/internal/store"
)

// MaxUsernameLength is the longest accepted username, in characters.
const MaxUsernameLength = 15

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides registration, login and logout against the configured backends.
type Service struct {
	backends  *backend.Set
	hasher    Hasher
	jwtConfig *JWTConfig

	// dummyHash is compared against when a user does not exist so both paths cost the same.
	dummyHash string
}

// NewService creates a new authentication service.
func NewService(backends *backend.Set, hasher Hasher, jwtConfig *JWTConfig) *Service {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		dummy = ""
	}
	return &Service{
		backends:  backends,
		hasher:    hasher,
		jwtConfig: jwtConfig,
		dummyHash: dummy,
	}
}

// NormalizeUsername trims surrounding whitespace and checks the length.
// Names must be usable as a URL path segment, so '/' and control characters are rejected.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", ErrInvalidUsername
	}
	if strings.ContainsFunc(username, invalidNameRune) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

func invalidNameRune(r rune) bool {
	return r == '/' || unicode.IsControl(r)
}

// Register creates a new offline user in the named backend.
func (s *Service) Register(ctx context.Context, backendName, username, password string) (*store.User, error) {
	b, err := s.backends.Get(backendName)
	if err != nil {
		return nil, err
	}

	username, err = NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidPassword
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := b.Store.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, fmt.Errorf("%w: %w", ErrUserExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Authenticate reports whether the credentials match a registered user.
// An unknown user and a wrong password are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, backendName, username, password string) (bool, error) {
	b, err := s.backends.Get(backendName)
	if err != nil {
		return false, err
	}
	return s.authenticate(ctx, b, strings.TrimSpace(username), password)
}

func (s *Service) authenticate(ctx context.Context, b *backend.Backend, username, password string) (bool, error) {
	user, err := b.Store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			if s.dummyHash != "" {
				_ = ComparePassword(s.dummyHash, password)
			}
			return false, nil
		}
		return false, fmt.Errorf("get user: %w", err)
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return false, nil
		}
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

// Login validates credentials, marks the user online and returns a signed session token.
// Logging in while already online resets the flag first, so the user is listed once.
func (s *Service) Login(ctx context.Context, backendName, username, password string) (string, *session.Session, error) {
	b, err := s.backends.Get(backendName)
	if err != nil {
		return "", nil, err
	}

	username = strings.TrimSpace(username)
	ok, err := s.authenticate(ctx, b, username, password)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	if err := b.Presence.SetOnline(ctx, username, false); err != nil {
		return "", nil, fmt.Errorf("reset presence: %w", err)
	}
	if err := b.Presence.SetOnline(ctx, username, true); err != nil {
		return "", nil, fmt.Errorf("set presence: %w", err)
	}

	sess := session.New(username, b.Name)
	token, err := GenerateToken(s.jwtConfig, sess)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, sess, nil
}

// Logout marks the session's user offline. The token stays valid until it expires.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	b, err := s.backends.Get(sess.Backend)
	if err != nil {
		return err
	}
	if err := b.Presence.SetOnline(ctx, sess.Username, false); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT token and returns the session it carries.
func (s *Service) ValidateToken(tokenString string) (*session.Session, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, err
	}
	if _, err := s.backends.Get(claims.Backend); err != nil {
		return nil, err
	}
	return claims.Session(), nil
}
