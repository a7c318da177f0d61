package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CommandTypeShell     = "shell"
	CommandTypeFileRead  = "file_read"
	CommandTypeFileWrite = "file_write"
	CommandTypeFileEdit  = "file_edit"
	CommandTypeOther     = "other"

	CommandStatusSuccess = "success"
	CommandStatusFailed  = "failed"
	CommandStatusError   = "error"
)

var (
	// CommandTypes lists the accepted command_type values.
	CommandTypes = []string{CommandTypeShell, CommandTypeFileRead, CommandTypeFileWrite, CommandTypeFileEdit, CommandTypeOther}
	// CommandStatuses lists the accepted command status values.
	CommandStatuses = []string{CommandStatusSuccess, CommandStatusFailed, CommandStatusError}
)

// CommandExecution is a write-once audit record of a command run on behalf
// of a user. The session link is weak: deleting the session nulls it rather
// than removing the audit trail.
type CommandExecution struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:ix_commands_user_created,priority:1" json:"user_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;index" json:"session_id"`

	Command     string `gorm:"type:text;not null" json:"command"`
	CommandType string `gorm:"type:varchar(20);not null;check:command_type IN ('shell','file_read','file_write','file_edit','other');index" json:"command_type"`
	Output      string `gorm:"type:text;not null;default:''" json:"output"`
	ExitCode    *int   `json:"exit_code"`
	// ExecutionTimeMs is the wall-clock duration of the command in milliseconds.
	ExecutionTimeMs *int    `json:"execution_time_ms"`
	Status          string  `gorm:"type:varchar(20);not null;check:status IN ('success','failed','error');index" json:"status"`
	ErrorMessage    string  `gorm:"type:text;not null;default:''" json:"error_message"`
	IPAddress       *string `gorm:"type:varchar(45)" json:"ip_address"`
	Hostname        string  `gorm:"type:varchar(255);not null;default:''" json:"hostname"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:ix_commands_user_created,priority:2" json:"created_at"`

	// CommandExecution <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// CommandExecution <-> Session (weak)
	Session *Session `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (CommandExecution) TableName() string { return "command_executions" }

func (c *CommandExecution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
