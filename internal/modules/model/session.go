package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusArchived  = "archived"
)

// SessionStatuses lists the accepted session status values.
var SessionStatuses = []string{SessionStatusActive, SessionStatusCompleted, SessionStatusArchived}

// Session is one chat conversation. MessageCount and TotalTokensUsed are
// caches over the session's live messages, recomputed inside the same
// transaction as every message mutation.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uint      `gorm:"not null;index:ix_sessions_user_created,priority:1" json:"user_id"`
	Title  string    `gorm:"type:varchar(200);not null;default:''" json:"title"`
	Status string    `gorm:"type:varchar(20);not null;default:'active';check:status IN ('active','completed','archived');index" json:"status"`

	MessageCount    int `gorm:"not null;default:0" json:"message_count"`
	TotalTokensUsed int `gorm:"not null;default:0" json:"total_tokens_used"`

	CreatedAt      time.Time `gorm:"autoCreateTime;not null;index:ix_sessions_user_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime;not null" json:"updated_at"`
	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`

	// Session <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Session <-> Message
	Messages []Message `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now().UTC()
	}
	return nil
}
