package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
)

// APIHandlers provides HTTP handlers for account and session endpoints.
type APIHandlers struct {
	authService *auth.Service
	backends    *backend.Set
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, backends *backend.Set, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		backends:    backends,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
// Backend is optional and defaults to the server's default backend.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Backend  string `json:"backend"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Backend  string `json:"backend"`
}

// RegisterResponse represents the registration response body.
type RegisterResponse struct {
	Username string `json:"username"`
	Backend  string `json:"backend"`
}

// AuthResponse represents the login response body.
type AuthResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Backend   string `json:"backend"`
	SessionID string `json:"session_id"`
}

// BackendsResponse lists the enabled backends.
type BackendsResponse struct {
	Backends []string `json:"backends"`
	Default  string   `json:"default"`
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Backend, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to register user")
		return
	}

	backendName := req.Backend
	if backendName == "" {
		backendName = h.backends.Default()
	}

	h.log.Info().Str("username", user.Username).Str("backend", backendName).Msg("user registered successfully")
	c.JSON(http.StatusCreated, RegisterResponse{Username: user.Username, Backend: backendName})
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, sess, err := h.authService.Login(c.Request.Context(), req.Backend, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to login user")
		return
	}

	h.log.Info().Str("username", sess.Username).Str("backend", sess.Backend).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		Username:  sess.Username,
		Backend:   sess.Backend,
		SessionID: sess.ID,
	})
}

// Logout marks the caller offline.
// POST /api/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sess); err != nil {
		respondError(c, h.log, err, "failed to logout user")
		return
	}

	h.log.Info().Str("username", sess.Username).Str("backend", sess.Backend).Msg("user logged out")
	c.Status(http.StatusNoContent)
}

// Backends lists the enabled backends.
// GET /api/backends
func (h *APIHandlers) Backends(c *gin.Context) {
	c.JSON(http.StatusOK, BackendsResponse{
		Backends: h.backends.Names(),
		Default:  h.backends.Default(),
	})
}
