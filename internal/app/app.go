package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/config"
	"github.com/vovakirdan/wizzychat/internal/service/chat"
	transporthttp "github.com/vovakirdan/wizzychat/internal/transport/http"
)

// App wires together storage, services and transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	backends        *backend.Set
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	backends, err := backend.Open(ctx, *cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open backends: %w", err)
	}

	hasher, err := auth.NewHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost)
	if err != nil {
		_ = backends.Close()
		return nil, fmt.Errorf("init hasher: %w", err)
	}

	authService := auth.NewService(backends, hasher, JWTConfig(cfg))
	chatService := chat.New(backends)
	server := transporthttp.NewServer(authService, chatService, backends, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		backends:        backends,
		log:             logger,
	}, nil
}

// JWTConfig converts the token settings of cfg.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}
}

// Handler exposes the HTTP handler.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
// Backends are closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Strs("backends", a.backends.Names()).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes every backend.
func (a *App) cleanup() {
	if err := a.backends.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close backends")
		return
	}
	a.log.Info().Msg("backends closed")
}
