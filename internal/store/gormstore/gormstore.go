package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// Config holds database configuration for the GORM backend.
type Config struct {
	Driver          string // sqlite, postgres, mysql
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent, error, warn, info
}

// GormStore implements store.Store through GORM.
type GormStore struct {
	db *gorm.DB
}

// New opens the configured database and migrates the schema.
func New(cfg Config) (*GormStore, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if strings.ToLower(cfg.Driver) == "sqlite" || cfg.Driver == "" {
		// SQLite has one writer, and a ":memory:" database lives only as long as its connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	return NewWithDB(db)
}

// NewWithDB wraps an open GORM connection and migrates the schema.
func NewWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&userModel{}, &messageModel{}, &groupModel{}, &groupMemberModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ==== UserStore implementation ====

// CreateUser creates a new offline user.
func (s *GormStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	m := userModel{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return store.ErrUsernameTaken
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return m.toDomain(), nil
}

// GetUser retrieves a user by username.
func (s *GormStore) GetUser(ctx context.Context, username string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return m.toDomain(), nil
}

// SetOnline updates the online flag; unknown usernames affect no rows.
func (s *GormStore) SetOnline(ctx context.Context, username string, online bool) error {
	err := s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("username = ?", username).
		Update("online", online).Error
	if err != nil {
		return fmt.Errorf("update online: %w", err)
	}
	return nil
}

// ListOnline lists online usernames except exclude.
func (s *GormStore) ListOnline(ctx context.Context, exclude string) ([]string, error) {
	names := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("online = ? AND username <> ?", true, exclude).
		Pluck("username", &names).Error
	if err != nil {
		return nil, fmt.Errorf("query online users: %w", err)
	}
	// Collations differ between drivers, so ordering is done here.
	store.SortUsernames(names)
	return names, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and returns it with its sequence ID.
func (s *GormStore) AppendMessage(ctx context.Context, sender, receiver, text string, isGroup bool) (*store.Message, error) {
	m := messageModel{
		Sender:   sender,
		Receiver: receiver,
		Body:     text,
		SentAt:   time.Now().UTC(),
		IsGroup:  isGroup,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m.toDomain(), nil
}

// DirectHistory returns the conversation between a and b.
func (s *GormStore) DirectHistory(ctx context.Context, a, b string, afterID int64) ([]*store.Message, error) {
	query := s.db.WithContext(ctx).
		Where("is_group = ?", false).
		Where("(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)", a, b, b, a).
		Where("id > ?", afterID)
	return findMessages(query)
}

// GroupHistory returns messages sent to a group.
func (s *GormStore) GroupHistory(ctx context.Context, group string, afterID int64) ([]*store.Message, error) {
	query := s.db.WithContext(ctx).
		Where("is_group = ? AND receiver = ? AND id > ?", true, group, afterID)
	return findMessages(query)
}

func findMessages(query *gorm.DB) ([]*store.Message, error) {
	var models []messageModel
	if err := query.Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].toDomain())
	}
	return messages, nil
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the creator as its first member.
func (s *GormStore) CreateGroup(ctx context.Context, name, creator string) (*store.Group, error) {
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&groupModel{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("count groups: %w", err)
		}
		if count > 0 {
			return store.ErrGroupNameTaken
		}
		if err := tx.Create(&groupModel{Name: name, CreatedBy: creator, CreatedAt: now}).Error; err != nil {
			return err
		}
		return tx.Create(&groupMemberModel{GroupName: name, Username: creator, JoinedAt: now}).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrGroupNameTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, store.ErrGroupNameTaken
		}
		return nil, fmt.Errorf("insert group: %w", err)
	}

	return &store.Group{
		Name:      name,
		CreatedBy: creator,
		CreatedAt: now,
		Members:   []string{creator},
	}, nil
}

// GetGroup retrieves a group and its members.
func (s *GormStore) GetGroup(ctx context.Context, name string) (*store.Group, error) {
	var m groupModel
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNoSuchGroup
		}
		return nil, fmt.Errorf("query group: %w", err)
	}

	members := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&groupMemberModel{}).
		Where("group_name = ?", name).
		Order("id ASC").
		Pluck("username", &members).Error
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}

	return &store.Group{
		Name:      m.Name,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		Members:   members,
	}, nil
}

// AddMember adds a user to a group; existing members are ignored.
func (s *GormStore) AddMember(ctx context.Context, name, username string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&groupModel{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("count groups: %w", err)
	}
	if count == 0 {
		return store.ErrNoSuchGroup
	}

	member := groupMemberModel{GroupName: name, Username: username, JoinedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// GroupsFor lists the groups a user belongs to.
func (s *GormStore) GroupsFor(ctx context.Context, username string) ([]string, error) {
	groups := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&groupMemberModel{}).
		Where("username = ?", username).
		Order("group_name ASC").
		Pluck("group_name", &groups).Error
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return groups, nil
}

// Ensure GormStore implements store.Store
var _ store.Store = (*GormStore)(nil)
