// Package backend opens the configured storage backends and resolves them by name.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/config"
	"github.com/vovakirdan/wizzychat/internal/presence"
	"github.com/vovakirdan/wizzychat/internal/store"
	"github.com/vovakirdan/wizzychat/internal/store/document"
	"github.com/vovakirdan/wizzychat/internal/store/gormstore"
	"github.com/vovakirdan/wizzychat/internal/store/sqlite"
)

// ErrUnknownBackend is returned when a session names a backend that is not enabled.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend is one independent dataset with its presence tracker.
type Backend struct {
	Name     string
	Store    store.Store
	Presence presence.Tracker
}

// Set holds the enabled backends.
type Set struct {
	backends    map[string]*Backend
	defaultName string
	closers     []io.Closer
}

// NewSet builds a set from already opened backends. The first one is the default
// unless defaultName is given.
func NewSet(defaultName string, backends ...*Backend) (*Set, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends")
	}
	s := &Set{backends: make(map[string]*Backend, len(backends))}
	for _, b := range backends {
		if _, dup := s.backends[b.Name]; dup {
			return nil, fmt.Errorf("duplicate backend %q", b.Name)
		}
		s.backends[b.Name] = b
		if b.Store != nil {
			s.closers = append(s.closers, b.Store)
		}
	}
	if defaultName == "" {
		defaultName = backends[0].Name
	}
	if _, ok := s.backends[defaultName]; !ok {
		return nil, fmt.Errorf("default backend %q: %w", defaultName, ErrUnknownBackend)
	}
	s.defaultName = defaultName
	return s, nil
}

// Open opens every backend enabled in cfg.
func Open(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*Set, error) {
	var (
		opened []*Backend
		extra  []io.Closer
	)
	fail := func(err error) (*Set, error) {
		for _, b := range opened {
			_ = b.Store.Close()
		}
		for _, c := range extra {
			_ = c.Close()
		}
		return nil, err
	}

	newTracker := func(name string, st store.Store) presence.Tracker {
		return presence.NewStoreTracker(st)
	}
	if cfg.Presence.Driver == "redis" {
		client, err := presence.NewRedisClient(ctx, presence.RedisConfig{
			Address:  cfg.Presence.Redis.Addr,
			Password: cfg.Presence.Redis.Password,
			DB:       cfg.Presence.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		extra = append(extra, client)
		newTracker = func(name string, _ store.Store) presence.Tracker {
			return presence.NewRedisTracker(client, cfg.Presence.Redis.Prefix, name)
		}
	}

	for _, name := range cfg.Storage.Backends {
		st, err := openStore(name, cfg.Storage)
		if err != nil {
			return fail(fmt.Errorf("open %s backend: %w", name, err))
		}
		opened = append(opened, &Backend{Name: name, Store: st, Presence: newTracker(name, st)})
		if logger != nil {
			logger.Info().Str("backend", name).Str("presence", cfg.Presence.Driver).Msg("backend opened")
		}
	}

	set, err := NewSet(cfg.Storage.Default, opened...)
	if err != nil {
		return fail(err)
	}
	set.closers = append(set.closers, extra...)
	return set, nil
}

func openStore(name string, cfg config.StorageConfig) (store.Store, error) {
	switch name {
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.BackendDocument:
		return document.New(cfg.DocumentPath)
	case config.BackendGorm:
		return gormstore.New(gormstore.Config{
			Driver:          cfg.Gorm.Driver,
			DSN:             cfg.Gorm.DSN,
			MaxIdleConns:    cfg.Gorm.MaxIdleConns,
			MaxOpenConns:    cfg.Gorm.MaxOpenConns,
			ConnMaxLifetime: cfg.Gorm.ConnMaxLifetime,
			LogLevel:        cfg.Gorm.LogLevel,
		})
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownBackend)
	}
}

// Get resolves a backend by name; an empty name selects the default.
func (s *Set) Get(name string) (*Backend, error) {
	if name == "" {
		name = s.defaultName
	}
	b, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownBackend)
	}
	return b, nil
}

// Default returns the name of the default backend.
func (s *Set) Default() string {
	return s.defaultName
}

// Names returns the enabled backend names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every backend and shared client, returning the joined errors.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
