package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// MessageRoles lists the accepted message role values.
var MessageRoles = []string{MessageRoleUser, MessageRoleAssistant, MessageRoleSystem}

// Message is one exchange turn within a session. SequenceNumber is assigned
// at creation, strictly increasing per session, and never reassigned; gaps
// remain after deletes.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_messages_session_seq,priority:1" json:"session_id"`
	Role      string    `gorm:"type:varchar(20);not null;check:role IN ('user','assistant','system')" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`

	TokensUsed     int     `gorm:"not null;default:0" json:"tokens_used"`
	ModelUsed      *string `gorm:"type:varchar(100)" json:"model_used"`
	SequenceNumber int     `gorm:"not null;uniqueIndex:uq_messages_session_seq,priority:2" json:"sequence_number"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null" json:"created_at"`

	// Message <-> Session
	Session *Session `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
