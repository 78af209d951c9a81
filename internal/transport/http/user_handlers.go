package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/service/chat"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(chatService *chat.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		chat: chatService,
		log:  logger,
	}
}

// OnlineUsersResponse lists online users other than the caller.
type OnlineUsersResponse struct {
	Users []string `json:"users"`
}

// OnlineUsers handles listing online users.
// GET /api/users/online
func (h *UserHandlers) OnlineUsers(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	users, err := h.chat.OnlineUsers(c.Request.Context(), sess)
	if err != nil {
		respondError(c, h.log, err, "failed to list online users")
		return
	}
	if users == nil {
		users = []string{}
	}

	c.JSON(http.StatusOK, OnlineUsersResponse{Users: users})
}
