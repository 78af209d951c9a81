package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/service/chat"
	"github.com/vovakirdan/wizzychat/internal/session"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// errorStatuses maps domain errors to HTTP statuses. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{auth.ErrUserExists, http.StatusConflict},
	{chat.ErrGroupNameTaken, http.StatusConflict},
	{auth.ErrInvalidUsername, http.StatusBadRequest},
	{auth.ErrInvalidPassword, http.StatusBadRequest},
	{chat.ErrEmptyMessage, http.StatusBadRequest},
	{chat.ErrSelfMessage, http.StatusBadRequest},
	{chat.ErrInvalidGroupName, http.StatusBadRequest},
	{backend.ErrUnknownBackend, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{chat.ErrNotMember, http.StatusForbidden},
	{chat.ErrUserNotFound, http.StatusNotFound},
	{chat.ErrNoSuchGroup, http.StatusNotFound},
}

// respondError writes the status for a known error, or logs it and answers 500.
func respondError(c *gin.Context, logger *zerolog.Logger, err error, msg string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.status, ErrorResponse{Error: e.err.Error()})
			return
		}
	}

	logger.Error().Err(err).Str("request_id", c.GetString(ContextKeyRequestID)).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// mustSession returns the caller's session or answers 401.
func mustSession(c *gin.Context, logger *zerolog.Logger) (*session.Session, bool) {
	sess, ok := sessionFrom(c)
	if !ok {
		logger.Error().Msg("session not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil, false
	}
	return sess, true
}
