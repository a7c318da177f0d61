package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

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

func seedUsage(t *testing.T, db *gorm.DB, userID uint, modelUsed string, in, out int, at time.Time) *model.TokenUsage {
	t.Helper()

	u := &model.TokenUsage{
		UserID:       userID,
		ModelUsed:    modelUsed,
		TokensInput:  in,
		TokensOutput: out,
		CreatedAt:    at,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func setupTokenUsageService(t *testing.T) (TokenUsageService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewTokenUsageService(
		repo.NewTokenUsageRepo(db),
		repo.NewSessionRepo(db),
		repo.NewMessageRepo(db),
	)
	return svc, db
}

func TestTokenUsageService_CreateValidation(t *testing.T) {
	svc, db := setupTokenUsageService(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	actor := Actor{UserID: alice.ID}

	_, err := svc.Create(ctx, actor, CreateTokenUsageInput{})
	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "model_used")

	_, err = svc.Create(ctx, actor, CreateTokenUsageInput{
		ModelUsed:    "gpt-4",
		TokensInput:  -1,
		TokensOutput: -2,
	})
	fe, ok = AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "tokens_input")
	assert.Contains(t, fe, "tokens_output")
}

func TestTokenUsageService_CreateDropsUnownedLinks(t *testing.T) {
	svc, db := setupTokenUsageService(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	mallory := seedUser(t, db, "mallory")

	mine := seedSession(t, db, alice.ID, "mine")
	theirs := seedSession(t, db, mallory.ID, "theirs")

	usage, err := svc.Create(ctx, Actor{UserID: alice.ID}, CreateTokenUsageInput{
		SessionID:    &mine.ID,
		ModelUsed:    "gpt-4",
		TokensInput:  10,
		TokensOutput: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, usage.SessionID)
	assert.Equal(t, mine.ID, *usage.SessionID)
	assert.Equal(t, 15, usage.TokensTotal)

	// A session owned by someone else is dropped, not rejected.
	ghost := uuid.New()
	usage, err = svc.Create(ctx, Actor{UserID: alice.ID}, CreateTokenUsageInput{
		SessionID:    &theirs.ID,
		MessageID:    &ghost,
		ModelUsed:    "gpt-4",
		TokensInput:  1,
		TokensOutput: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, usage.SessionID)
	assert.Nil(t, usage.MessageID)
}

func TestTokenUsageService_StatisticsGroupings(t *testing.T) {
	svc, db := setupTokenUsageService(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	// Tue 2026-03-03 and Wed 2026-03-04 share a Monday 2026-03-02 week;
	// 2026-04-01 lands in the next week and month.
	seedUsage(t, db, alice.ID, "gpt-4", 10, 5, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))
	seedUsage(t, db, alice.ID, "gpt-4", 20, 10, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	seedUsage(t, db, alice.ID, "", 1, 1, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	actor := Actor{UserID: alice.ID}

	t.Run("day", func(t *testing.T) {
		out, err := svc.Statistics(ctx, actor, UsageStatsInput{GroupBy: GroupByDay})
		require.NoError(t, err)
		assert.Equal(t, int64(47), out.TotalTokens)
		require.Len(t, out.Breakdown, 3)
		assert.Equal(t, "2026-03-03", out.Breakdown[0].GroupKey)
		assert.Equal(t, int64(15), out.Breakdown[0].TokensTotal)
		assert.Equal(t, "2026-04-01", out.Breakdown[2].GroupKey)
	})

	t.Run("week buckets start on Monday", func(t *testing.T) {
		out, err := svc.Statistics(ctx, actor, UsageStatsInput{GroupBy: GroupByWeek})
		require.NoError(t, err)
		require.Len(t, out.Breakdown, 2)
		assert.Equal(t, "2026-03-02", out.Breakdown[0].GroupKey)
		assert.Equal(t, int64(45), out.Breakdown[0].TokensTotal)
		assert.Equal(t, "2026-03-30", out.Breakdown[1].GroupKey)
	})

	t.Run("month", func(t *testing.T) {
		out, err := svc.Statistics(ctx, actor, UsageStatsInput{GroupBy: GroupByMonth})
		require.NoError(t, err)
		require.Len(t, out.Breakdown, 2)
		assert.Equal(t, "2026-03", out.Breakdown[0].GroupKey)
		assert.Equal(t, "2026-04", out.Breakdown[1].GroupKey)
	})

	t.Run("empty model becomes Unknown", func(t *testing.T) {
		out, err := svc.Statistics(ctx, actor, UsageStatsInput{GroupBy: GroupByModel})
		require.NoError(t, err)
		require.Len(t, out.Breakdown, 2)
		assert.Equal(t, "Unknown", out.Breakdown[0].GroupKey)
		assert.Equal(t, "gpt-4", out.Breakdown[1].GroupKey)
	})
}

func TestTokenUsageService_StatisticsScoping(t *testing.T) {
	svc, db := setupTokenUsageService(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedUsage(t, db, alice.ID, "gpt-4", 10, 0, now)
	seedUsage(t, db, bob.ID, "gpt-4", 100, 0, now)

	// A non-admin sees only their own rows, user_id filter or not.
	out, err := svc.Statistics(ctx, Actor{UserID: alice.ID}, UsageStatsInput{UserID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.TotalTokens)

	// Admins can filter to any user.
	out, err = svc.Statistics(ctx, Actor{UserID: alice.ID, Admin: true}, UsageStatsInput{UserID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(100), out.TotalTokens)

	// group_by=user for a non-admin yields totals but no breakdown.
	out, err = svc.Statistics(ctx, Actor{UserID: alice.ID}, UsageStatsInput{GroupBy: GroupByUser})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.TotalTokens)
	assert.Empty(t, out.Breakdown)

	out, err = svc.Statistics(ctx, Actor{UserID: alice.ID, Admin: true}, UsageStatsInput{GroupBy: GroupByUser})
	require.NoError(t, err)
	require.Len(t, out.Breakdown, 2)
	assert.Equal(t, "alice (ID: 1)", out.Breakdown[0].GroupKey)
	assert.Equal(t, "bob (ID: 2)", out.Breakdown[1].GroupKey)
}

func TestTokenUsageService_StatisticsPeriod(t *testing.T) {
	svc, db := setupTokenUsageService(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	actor := Actor{UserID: alice.ID}

	seedUsage(t, db, alice.ID, "gpt-4", 1, 0, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	seedUsage(t, db, alice.ID, "gpt-4", 1, 0, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))

	// Without an explicit range the period spans the matched rows.
	out, err := svc.Statistics(ctx, actor, UsageStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, UsagePeriod{From: "2026-02-10", To: "2026-02-20"}, out.Period)

	// An explicit range is echoed back verbatim.
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out, err = svc.Statistics(ctx, actor, UsageStatsInput{
		From:        &from,
		ToExclusive: &to,
		FromRaw:     "2026-02-01",
		ToRaw:       "2026-02-28",
	})
	require.NoError(t, err)
	assert.Equal(t, UsagePeriod{From: "2026-02-01", To: "2026-02-28"}, out.Period)
}
