package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/service/chat"
)

// DirectHandlers provides HTTP handlers for direct conversations.
type DirectHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewDirectHandlers creates a new direct handlers instance.
func NewDirectHandlers(chatService *chat.Service, logger *zerolog.Logger) *DirectHandlers {
	return &DirectHandlers{
		chat: chatService,
		log:  logger,
	}
}

// SendMessageRequest represents the send message request body.
// Emptiness is checked after trimming by the chat service.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// HistoryQuery holds the incremental cursor of history requests.
type HistoryQuery struct {
	After int64 `form:"after" binding:"min=0"`
}

// SendDirect handles sending a direct message.
// POST /api/direct/:peer/messages
func (h *DirectHandlers) SendDirect(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.chat.SendDirect(c.Request.Context(), sess, c.Param("peer"), req.Text)
	if err != nil {
		respondError(c, h.log, err, "failed to send direct message")
		return
	}

	h.log.Debug().Str("from", msg.Sender).Str("to", msg.Receiver).Int64("message_id", msg.ID).Msg("direct message sent")
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// DirectHistory handles reading a direct conversation.
// GET /api/direct/:peer/messages?after=ID
func (h *DirectHandlers) DirectHistory(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
		return
	}

	messages, err := h.chat.DirectHistory(c.Request.Context(), sess, c.Param("peer"), q.After)
	if err != nil {
		respondError(c, h.log, err, "failed to read direct history")
		return
	}

	c.JSON(http.StatusOK, toHistoryResponse(messages, q.After))
}
