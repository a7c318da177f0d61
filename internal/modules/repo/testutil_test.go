package repo

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zapfix-io/zapfix/internal/modules/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory sqlite: one connection keeps every query on the same database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Session{},
		&model.Message{},
		&model.CommandExecution{},
		&model.TokenUsage{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedSession(t *testing.T, db *gorm.DB, userID uint, title string) *model.Session {
	t.Helper()

	s := &model.Session{
		UserID: userID,
		Title:  title,
		Status: model.SessionStatusActive,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}
