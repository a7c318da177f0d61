package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapfix-io/zapfix/internal/modules/model"
)

func TestSessionRepo_GetOwnedMasksOtherUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(db)

	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")
	sess := seedSession(t, db, owner.ID, "mine")

	got, err := sessions.GetOwned(ctx, owner.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = sessions.GetOwned(ctx, other.ID, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = sessions.GetOwned(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepo_ListByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	seedSession(t, db, alice.ID, "one")
	s2 := seedSession(t, db, alice.ID, "two")
	s2.Status = model.SessionStatusArchived
	require.NoError(t, db.Save(s2).Error)
	seedSession(t, db, bob.ID, "theirs")

	items, count, err := sessions.ListByOwner(ctx, alice.ID, "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, items, 2)

	items, count, err = sessions.ListByOwner(ctx, alice.ID, model.SessionStatusArchived, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, items, 1)
	assert.Equal(t, "two", items[0].Title)
}

func TestMessageRepo_SequenceNumbersStrictlyIncrease(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	messages := NewMessageRepo(db)

	user := seedUser(t, db, "alice")
	sess := seedSession(t, db, user.ID, "chat")

	var created []*model.Message
	for i := 0; i < 3; i++ {
		m := &model.Message{
			SessionID: sess.ID,
			Role:      model.MessageRoleUser,
			Content:   "hello",
		}
		_, err := messages.Create(ctx, user.ID, m)
		require.NoError(t, err)
		created = append(created, m)
	}
	assert.Equal(t, 1, created[0].SequenceNumber)
	assert.Equal(t, 2, created[1].SequenceNumber)
	assert.Equal(t, 3, created[2].SequenceNumber)

	// Deleting an intermediate message leaves a gap; numbers are never
	// reused.
	require.NoError(t, messages.Delete(ctx, user.ID, created[1].ID))

	next := &model.Message{
		SessionID: sess.ID,
		Role:      model.MessageRoleAssistant,
		Content:   "reply",
	}
	_, err := messages.Create(ctx, user.ID, next)
	require.NoError(t, err)
	assert.Equal(t, 4, next.SequenceNumber)
}

func TestMessageRepo_AggregatesTrackMessageSet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(db)
	messages := NewMessageRepo(db)

	user := seedUser(t, db, "alice")
	sess := seedSession(t, db, user.ID, "chat")

	m1 := &model.Message{SessionID: sess.ID, Role: model.MessageRoleUser, Content: "q"}
	_, err := messages.Create(ctx, user.ID, m1)
	require.NoError(t, err)

	m2 := &model.Message{SessionID: sess.ID, Role: model.MessageRoleAssistant, Content: "a", TokensUsed: 5}
	updated, err := messages.Create(ctx, user.ID, m2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MessageCount)
	assert.Equal(t, 5, updated.TotalTokensUsed)

	// Editing tokens_used re-sums the session total.
	_, sessAfter, err := messages.Update(ctx, user.ID, m2.ID, map[string]interface{}{"tokens_used": 9})
	require.NoError(t, err)
	assert.Equal(t, 2, sessAfter.MessageCount)
	assert.Equal(t, 9, sessAfter.TotalTokensUsed)

	// Verify against a direct recount.
	var count int64
	require.NoError(t, db.Model(&model.Message{}).Where("session_id = ?", sess.ID).Count(&count).Error)
	got, err := sessions.GetOwned(ctx, user.ID, sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, count, got.MessageCount)
	assert.False(t, got.LastActivityAt.IsZero())
}

func TestMessageRepo_DeleteLastMessageZeroesCounters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(db)
	messages := NewMessageRepo(db)

	user := seedUser(t, db, "alice")
	sess := seedSession(t, db, user.ID, "chat")

	m := &model.Message{SessionID: sess.ID, Role: model.MessageRoleUser, Content: "only", TokensUsed: 7}
	updated, err := messages.Create(ctx, user.ID, m)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MessageCount)
	assert.Equal(t, 7, updated.TotalTokensUsed)

	require.NoError(t, messages.Delete(ctx, user.ID, m.ID))

	got, err := sessions.GetOwned(ctx, user.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MessageCount)
	assert.Equal(t, 0, got.TotalTokensUsed)
}

func TestMessageRepo_OwnershipMasking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	messages := NewMessageRepo(db)

	alice := seedUser(t, db, "alice")
	mallory := seedUser(t, db, "mallory")
	sess := seedSession(t, db, alice.ID, "private")

	m := &model.Message{SessionID: sess.ID, Role: model.MessageRoleUser, Content: "secret"}
	_, err := messages.Create(ctx, alice.ID, m)
	require.NoError(t, err)

	_, err = messages.GetOwned(ctx, mallory.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = messages.Update(ctx, mallory.ID, m.ID, map[string]interface{}{"content": "tampered"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = messages.Delete(ctx, mallory.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Creating into someone else's session is also masked.
	intruder := &model.Message{SessionID: sess.ID, Role: model.MessageRoleUser, Content: "hi"}
	_, err = messages.Create(ctx, mallory.ID, intruder)
	assert.ErrorIs(t, err, ErrNotFound)

	items, count, err := messages.List(ctx, mallory.ID, MessageFilter{}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Empty(t, items)
}

func TestMessageRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	messages := NewMessageRepo(db)

	user := seedUser(t, db, "alice")
	s1 := seedSession(t, db, user.ID, "one")
	s2 := seedSession(t, db, user.ID, "two")

	gpt := "gpt-4"
	for _, m := range []*model.Message{
		{SessionID: s1.ID, Role: model.MessageRoleUser, Content: "a"},
		{SessionID: s1.ID, Role: model.MessageRoleAssistant, Content: "b", ModelUsed: &gpt},
		{SessionID: s2.ID, Role: model.MessageRoleUser, Content: "c"},
	} {
		_, err := messages.Create(ctx, user.ID, m)
		require.NoError(t, err)
	}

	items, count, err := messages.List(ctx, user.ID, MessageFilter{SessionID: s1.ID}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 1, items[0].SequenceNumber)
	assert.Equal(t, 2, items[1].SequenceNumber)

	_, count, err = messages.List(ctx, user.ID, MessageFilter{Role: model.MessageRoleAssistant}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, count, err = messages.List(ctx, user.ID, MessageFilter{ModelUsed: "gpt-4"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
