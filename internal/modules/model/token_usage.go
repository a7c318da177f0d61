package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenUsage is a write-once record of model token consumption. TokensTotal
// is always recomputed from input+output on save; client-supplied values are
// ignored. Session and message links are weak (nulled on parent deletion).
type TokenUsage struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:ix_token_usage_user_created,priority:1" json:"user_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;index" json:"session_id"`
	MessageID *uuid.UUID `gorm:"type:uuid" json:"message_id"`

	ModelUsed    string   `gorm:"type:varchar(100);not null;index" json:"model_used"`
	TokensInput  int      `gorm:"not null;default:0" json:"tokens_input"`
	TokensOutput int      `gorm:"not null;default:0" json:"tokens_output"`
	TokensTotal  int      `gorm:"not null;default:0" json:"tokens_total"`
	CostUSD      *float64 `gorm:"type:numeric(10,6)" json:"cost_usd"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:ix_token_usage_user_created,priority:2" json:"created_at"`

	// TokenUsage <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// TokenUsage <-> Session (weak)
	Session *Session `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`

	// TokenUsage <-> Message (weak)
	Message *Message `gorm:"foreignKey:MessageID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (TokenUsage) TableName() string { return "token_usage" }

func (t *TokenUsage) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.TokensTotal = t.TokensInput + t.TokensOutput
	return nil
}

func (t *TokenUsage) BeforeSave(tx *gorm.DB) error {
	t.TokensTotal = t.TokensInput + t.TokensOutput
	return nil
}
