package types

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is scoped either to a single document or to a whole project,
// always for one user. Exactly one of DocumentID/ProjectID is set.
type Conversation struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`
	ProjectID  *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageDone    MessageStatus = "done"
	MessageError   MessageStatus = "error"
)

type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	Role           MessageRole   `gorm:"column:role;not null" json:"role"`
	Content        string        `gorm:"column:content;not null" json:"content"`
	Status         MessageStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt      time.Time     `gorm:"not null;default:now()" json:"created_at"`
}

func (Message) TableName() string { return "message" }
