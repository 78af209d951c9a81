package http

import (
	"time"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID       int64  `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
	SentAt   string `json:"sent_at"`
	IsGroup  bool   `json:"is_group"`
}

// HistoryResponse is a page of history. Cursor is the highest ID returned,
// or the requested cursor when nothing newer exists; pass it back as ?after=.
type HistoryResponse struct {
	Messages []MessageResponse `json:"messages"`
	Cursor   int64             `json:"cursor"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	Name      string   `json:"name"`
	CreatedBy string   `json:"created_by"`
	CreatedAt string   `json:"created_at"`
	Members   []string `json:"members"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:       m.ID,
		Sender:   m.Sender,
		Receiver: m.Receiver,
		Text:     m.Text,
		SentAt:   formatTime(m.SentAt),
		IsGroup:  m.IsGroup,
	}
}

func toHistoryResponse(messages []*store.Message, after int64) HistoryResponse {
	resp := HistoryResponse{
		Messages: make([]MessageResponse, 0, len(messages)),
		Cursor:   after,
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
		if m.ID > resp.Cursor {
			resp.Cursor = m.ID
		}
	}
	return resp
}

func toGroupResponse(g *store.Group) GroupResponse {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return GroupResponse{
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		CreatedAt: formatTime(g.CreatedAt),
		Members:   members,
	}
}
