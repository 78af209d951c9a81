package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/service/chat"
)

// GroupHandlers provides HTTP handlers for group management and group messages.
type GroupHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(chatService *chat.Service, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		chat: chatService,
		log:  logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest represents the add member request body.
// An empty username adds the caller.
type AddMemberRequest struct {
	Username string `json:"username"`
}

// GroupsResponse lists the caller's groups.
type GroupsResponse struct {
	Groups []string `json:"groups"`
}

// CreateGroup handles group creation.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.chat.CreateGroup(c.Request.Context(), sess, req.Name)
	if err != nil {
		respondError(c, h.log, err, "failed to create group")
		return
	}

	h.log.Info().Str("group", group.Name).Str("created_by", group.CreatedBy).Msg("group created successfully")
	c.JSON(http.StatusCreated, toGroupResponse(group))
}

// ListGroups handles listing the caller's groups.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	groups, err := h.chat.Groups(c.Request.Context(), sess)
	if err != nil {
		respondError(c, h.log, err, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []string{}
	}

	c.JSON(http.StatusOK, GroupsResponse{Groups: groups})
}

// GetGroup handles reading a group and its members.
// GET /api/groups/:name
func (h *GroupHandlers) GetGroup(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	group, err := h.chat.GroupInfo(c.Request.Context(), sess, c.Param("name"))
	if err != nil {
		respondError(c, h.log, err, "failed to get group")
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group))
}

// AddMember handles joining a group or adding another user to it.
// POST /api/groups/:name/members
func (h *GroupHandlers) AddMember(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	var req AddMemberRequest
	// An empty body means self-join.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid add member request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	name := c.Param("name")
	var err error
	if req.Username == "" || req.Username == sess.Username {
		err = h.chat.JoinGroup(c.Request.Context(), sess, name)
	} else {
		err = h.chat.AddMember(c.Request.Context(), sess, name, req.Username)
	}
	if err != nil {
		respondError(c, h.log, err, "failed to add group member")
		return
	}

	group, err := h.chat.GroupInfo(c.Request.Context(), sess, name)
	if err != nil {
		respondError(c, h.log, err, "failed to get group")
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group))
}

// SendGroup handles posting a message to a group.
// POST /api/groups/:name/messages
func (h *GroupHandlers) SendGroup(c *gin.Context) {
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

	msg, err := h.chat.SendGroup(c.Request.Context(), sess, c.Param("name"), req.Text)
	if err != nil {
		respondError(c, h.log, err, "failed to send group message")
		return
	}

	h.log.Debug().Str("from", msg.Sender).Str("group", msg.Receiver).Int64("message_id", msg.ID).Msg("group message sent")
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// GroupHistory handles reading a group's messages.
// GET /api/groups/:name/messages?after=ID
func (h *GroupHandlers) GroupHistory(c *gin.Context) {
	sess, ok := mustSession(c, h.log)
	if !ok {
		return
	}

	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
		return
	}

	messages, err := h.chat.GroupHistory(c.Request.Context(), sess, c.Param("name"), q.After)
	if err != nil {
		respondError(c, h.log, err, "failed to read group history")
		return
	}

	c.JSON(http.StatusOK, toHistoryResponse(messages, q.After))
}
