package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapfix-io/zapfix/internal/modules/model"
)

func TestCommandExecutionRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	commands := NewCommandExecutionRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	for _, c := range []*model.CommandExecution{
		{UserID: alice.ID, Command: "ls", CommandType: model.CommandTypeShell, Status: model.CommandStatusSuccess},
		{UserID: alice.ID, Command: "cat x", CommandType: model.CommandTypeFileRead, Status: model.CommandStatusFailed},
		{UserID: bob.ID, Command: "rm y", CommandType: model.CommandTypeShell, Status: model.CommandStatusError},
	} {
		require.NoError(t, commands.Create(ctx, c))
	}

	items, count, err := commands.List(ctx, CommandFilter{}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.NotNil(t, items[0].User)

	_, count, err = commands.List(ctx, CommandFilter{UserID: alice.ID}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, count, err = commands.List(ctx, CommandFilter{CommandType: model.CommandTypeShell}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, count, err = commands.List(ctx, CommandFilter{Status: model.CommandStatusFailed}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	future := time.Now().UTC().Add(24 * time.Hour)
	_, count, err = commands.List(ctx, CommandFilter{From: &future}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, count, err = commands.List(ctx, CommandFilter{ToExclusive: &future}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestCommandExecutionRepo_WeakSessionLink(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	commands := NewCommandExecutionRepo(db)

	user := seedUser(t, db, "alice")
	sess := seedSession(t, db, user.ID, "chat")

	c := &model.CommandExecution{
		UserID:      user.ID,
		SessionID:   &sess.ID,
		Command:     "make build",
		CommandType: model.CommandTypeShell,
		Status:      model.CommandStatusSuccess,
	}
	require.NoError(t, commands.Create(ctx, c))

	var stored model.CommandExecution
	require.NoError(t, db.First(&stored, "id = ?", c.ID).Error)
	require.NotNil(t, stored.SessionID)
	assert.Equal(t, sess.ID, *stored.SessionID)
}
