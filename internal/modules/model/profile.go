package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile extends a User with its role and, for regular users, the admin
// that manages the account. A "user" profile must reference an admin; an
// "admin" profile must not.
type Profile struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Role    string    `gorm:"type:varchar(20);not null;default:'user';check:role IN ('admin','user')" json:"role"`
	AdminID *uint     `gorm:"index" json:"admin_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null" json:"updated_at"`

	// Profile <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Profile <-> managing admin User
	Admin *User `gorm:"foreignKey:AdminID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (Profile) TableName() string { return "user_profiles" }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }
