package gormstore

import (
	"time"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// userModel is the GORM model for the users table.
type userModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Online       bool      `gorm:"index;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for userModel.
func (userModel) TableName() string {
	return "users"
}

func (m *userModel) toDomain() *store.User {
	return &store.User{
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Online:       m.Online,
		CreatedAt:    m.CreatedAt,
	}
}

// messageModel is the GORM model for the messages table.
type messageModel struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	Sender   string    `gorm:"type:varchar(64);not null;index:idx_messages_pair,priority:2"`
	Receiver string    `gorm:"type:varchar(64);not null;index:idx_messages_pair,priority:3;index:idx_messages_receiver,priority:2"`
	Body     string    `gorm:"type:text;not null"`
	SentAt   time.Time `gorm:"not null"`
	IsGroup  bool      `gorm:"not null;index:idx_messages_pair,priority:1;index:idx_messages_receiver,priority:1"`
}

// TableName specifies the table name for messageModel.
func (messageModel) TableName() string {
	return "messages"
}

func (m *messageModel) toDomain() *store.Message {
	return &store.Message{
		ID:       m.ID,
		Sender:   m.Sender,
		Receiver: m.Receiver,
		Text:     m.Body,
		SentAt:   m.SentAt,
		IsGroup:  m.IsGroup,
	}
}

// groupModel is the GORM model for the groups table.
type groupModel struct {
	Name      string    `gorm:"type:varchar(64);primaryKey"`
	CreatedBy string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for groupModel.
func (groupModel) TableName() string {
	return "groups"
}

// groupMemberModel is the GORM model for the group_members table.
// ID records join order.
type groupMemberModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	GroupName string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_group_member,priority:1"`
	Username  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_group_member,priority:2;index"`
	JoinedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for groupMemberModel.
func (groupMemberModel) TableName() string {
	return "group_members"
}
