package bootstrap

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zapfix-io/zapfix/internal/config"
	"github.com/zapfix-io/zapfix/internal/modules/model"
)

// EnsureDefaultAdminExists seeds the bootstrap admin account when no admin
// profile exists yet. Registration is admin-only, so without this seed a
// fresh database could never accept its first user. Skipped when no admin
// password is configured.
func EnsureDefaultAdminExists(ctx context.Context, db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if cfg.Auth.AdminPassword == "" {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&model.Profile{}).
		Where("role = ?", model.RoleAdmin).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := model.User{
			Username:     cfg.Auth.AdminUsername,
			Email:        cfg.Auth.AdminEmail,
			PasswordHash: string(hash),
			IsActive:     true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		profile := model.Profile{
			UserID: admin.ID,
			Role:   model.RoleAdmin,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		log.Sugar().Infow("default admin created", "username", admin.Username)
		return nil
	})
}
