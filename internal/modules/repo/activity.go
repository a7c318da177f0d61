package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"gorm.io/gorm"
)

// ActivityWindow bounds report queries to an inclusive day range expressed
// as [From, ToExclusive). Nil bounds mean unbounded.
type ActivityWindow struct {
	From        *time.Time
	ToExclusive *time.Time
}

type UserCounts struct {
	Sessions int64
	Commands int64
	Tokens   int64
}

type SummaryCounts struct {
	TotalUsers    int64
	ActiveUsers   int64
	TotalSessions int64
	TotalMessages int64
	TotalCommands int64
	TotalTokens   int64
}

type UserDetailStats struct {
	TotalSessions   int64
	ActiveSessions  int64
	TotalMessages   int64
	TotalCommands   int64
	TotalTokensUsed int64
	TokensByModel   map[string]int64
}

// ActivityRepo is the read-only aggregator behind the admin reports. It
// queries across every component but never writes.
type ActivityRepo interface {
	UserCounts(ctx context.Context, userID uint, w ActivityWindow) (*UserCounts, error)
	// UserLastActivity is max(last session activity, last command, last
	// token usage) within the window, nil when the user has no activity.
	UserLastActivity(ctx context.Context, userID uint, w ActivityWindow) (*time.Time, error)
	// SummaryCounts computes fleet totals; userID 0 means all users.
	SummaryCounts(ctx context.Context, userID uint, w ActivityWindow) (*SummaryCounts, error)
	UserDetailStats(ctx context.Context, userID uint) (*UserDetailStats, error)
	RecentSessions(ctx context.Context, userID uint, limit int) ([]model.Session, error)
	RecentCommands(ctx context.Context, userID uint, limit int) ([]model.CommandExecution, error)
}

type activityRepo struct{ db *gorm.DB }

func NewActivityRepo(db *gorm.DB) ActivityRepo {
	return &activityRepo{db: db}
}

func windowed(q *gorm.DB, column string, w ActivityWindow) *gorm.DB {
	if w.From != nil {
		q = q.Where(column+" >= ?", *w.From)
	}
	if w.ToExclusive != nil {
		q = q.Where(column+" < ?", *w.ToExclusive)
	}
	return q
}

func (r *activityRepo) UserCounts(ctx context.Context, userID uint, w ActivityWindow) (*UserCounts, error) {
	out := &UserCounts{}

	q := windowed(r.db.WithContext(ctx).Model(&model.Session{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Count(&out.Sessions).Error; err != nil {
		return nil, err
	}

	q = windowed(r.db.WithContext(ctx).Model(&model.CommandExecution{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Count(&out.Commands).Error; err != nil {
		return nil, err
	}

	q = windowed(r.db.WithContext(ctx).Model(&model.TokenUsage{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Select("COALESCE(SUM(tokens_total), 0)").Scan(&out.Tokens).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) UserLastActivity(ctx context.Context, userID uint, w ActivityWindow) (*time.Time, error) {
	var last *time.Time
	consider := func(ns sql.NullTime) {
		if !ns.Valid {
			return
		}
		t := ns.Time
		if last == nil || t.After(*last) {
			last = &t
		}
	}

	var ns sql.NullTime
	q := windowed(r.db.WithContext(ctx).Model(&model.Session{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Select("MAX(last_activity_at)").Scan(&ns).Error; err != nil {
		return nil, err
	}
	consider(ns)

	ns = sql.NullTime{}
	q = windowed(r.db.WithContext(ctx).Model(&model.CommandExecution{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Select("MAX(created_at)").Scan(&ns).Error; err != nil {
		return nil, err
	}
	consider(ns)

	ns = sql.NullTime{}
	q = windowed(r.db.WithContext(ctx).Model(&model.TokenUsage{}).Where("user_id = ?", userID), "created_at", w)
	if err := q.Select("MAX(created_at)").Scan(&ns).Error; err != nil {
		return nil, err
	}
	consider(ns)

	return last, nil
}

func (r *activityRepo) SummaryCounts(ctx context.Context, userID uint, w ActivityWindow) (*SummaryCounts, error) {
	out := &SummaryCounts{}

	users := r.db.WithContext(ctx).Model(&model.User{})
	if userID != 0 {
		users = users.Where("id = ?", userID)
	}
	if err := users.Count(&out.TotalUsers).Error; err != nil {
		return nil, err
	}

	active := r.db.WithContext(ctx).Model(&model.User{}).Where("is_active = ?", true)
	if userID != 0 {
		active = active.Where("id = ?", userID)
	}
	if err := active.Count(&out.ActiveUsers).Error; err != nil {
		return nil, err
	}

	sessions := windowed(r.db.WithContext(ctx).Model(&model.Session{}), "created_at", w)
	if userID != 0 {
		sessions = sessions.Where("user_id = ?", userID)
	}
	if err := sessions.Count(&out.TotalSessions).Error; err != nil {
		return nil, err
	}

	messages := windowed(r.db.WithContext(ctx).Model(&model.Message{}), "messages.created_at", w)
	if userID != 0 {
		messages = messages.
			Joins("JOIN sessions ON sessions.id = messages.session_id").
			Where("sessions.user_id = ?", userID)
	}
	if err := messages.Count(&out.TotalMessages).Error; err != nil {
		return nil, err
	}

	commands := windowed(r.db.WithContext(ctx).Model(&model.CommandExecution{}), "created_at", w)
	if userID != 0 {
		commands = commands.Where("user_id = ?", userID)
	}
	if err := commands.Count(&out.TotalCommands).Error; err != nil {
		return nil, err
	}

	tokens := windowed(r.db.WithContext(ctx).Model(&model.TokenUsage{}), "created_at", w)
	if userID != 0 {
		tokens = tokens.Where("user_id = ?", userID)
	}
	if err := tokens.Select("COALESCE(SUM(tokens_total), 0)").Scan(&out.TotalTokens).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) UserDetailStats(ctx context.Context, userID uint) (*UserDetailStats, error) {
	out := &UserDetailStats{TokensByModel: map[string]int64{}}

	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Session{}).Where("user_id = ?", userID).Count(&out.TotalSessions).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Session{}).
		Where("user_id = ? AND status = ?", userID, model.SessionStatusActive).
		Count(&out.ActiveSessions).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Message{}).
		Joins("JOIN sessions ON sessions.id = messages.session_id").
		Where("sessions.user_id = ?", userID).
		Count(&out.TotalMessages).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.CommandExecution{}).Where("user_id = ?", userID).Count(&out.TotalCommands).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.TokenUsage{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(tokens_total), 0)").
		Scan(&out.TotalTokensUsed).Error; err != nil {
		return nil, err
	}

	type modelRow struct {
		ModelUsed string
		Total     int64
	}
	var rows []modelRow
	if err := db.Model(&model.TokenUsage{}).
		Where("user_id = ?", userID).
		Select("model_used, SUM(tokens_total) AS total").
		Group("model_used").
		Order("total DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out.TokensByModel[row.ModelUsed] = row.Total
	}
	return out, nil
}

func (r *activityRepo) RecentSessions(ctx context.Context, userID uint, limit int) ([]model.Session, error) {
	var items []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *activityRepo) RecentCommands(ctx context.Context, userID uint, limit int) ([]model.CommandExecution, error) {
	var items []model.CommandExecution
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
