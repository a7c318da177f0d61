package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

const (
	recentSessionsLimit = 10
	recentCommandsLimit = 10
	commandPreviewLen   = 100
)

type ActivityService interface {
	// ListUsersWithStats returns every account with lifetime activity
	// counters attached.
	ListUsersWithStats(ctx context.Context) ([]UserWithStats, error)
	// Summary builds the fleet activity report, optionally filtered to one
	// user and a date window.
	Summary(ctx context.Context, in SummaryInput) (*ActivitySummary, error)
	// UserDetails returns the drill-down report for one account.
	UserDetails(ctx context.Context, userID uint) (*UserDetails, error)
}

type activityService struct {
	users    repo.UserRepo
	activity repo.ActivityRepo
}

func NewActivityService(users repo.UserRepo, activity repo.ActivityRepo) ActivityService {
	return &activityService{users: users, activity: activity}
}

type UserWithStats struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login"`
	TotalSessions int64      `json:"total_sessions"`
	TotalTokens   int64      `json:"total_tokens_used"`
	TotalCommands int64      `json:"total_commands_executed"`
}

func (s *activityService) ListUsersWithStats(ctx context.Context) ([]UserWithStats, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		counts, err := s.activity.UserCounts(ctx, u.ID, repo.ActivityWindow{})
		if err != nil {
			return nil, err
		}
		role := model.RoleUser
		if u.Profile != nil {
			role = u.Profile.Role
		}
		out = append(out, UserWithStats{
			ID:            u.ID,
			Username:      u.Username,
			Email:         u.Email,
			FirstName:     nullableName(u.FirstName),
			LastName:      nullableName(u.LastName),
			Role:          role,
			IsActive:      u.IsActive,
			CreatedAt:     u.CreatedAt,
			LastLogin:     u.LastLoginAt,
			TotalSessions: counts.Sessions,
			TotalTokens:   counts.Tokens,
			TotalCommands: counts.Commands,
		})
	}
	return out, nil
}

type SummaryInput struct {
	// UserID narrows every figure to one user; 0 means all users.
	UserID      uint
	From        *time.Time
	ToExclusive *time.Time
}

type SummaryTotals struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users"`
	TotalSessions int64 `json:"total_sessions"`
	TotalMessages int64 `json:"total_messages"`
	TotalCommands int64 `json:"total_commands"`
	TotalTokens   int64 `json:"total_tokens"`
}

type UserActivityRow struct {
	UserID        uint       `json:"user_id"`
	Username      string     `json:"username"`
	SessionsCount int64      `json:"sessions_count"`
	CommandsCount int64      `json:"commands_count"`
	TokensUsed    int64      `json:"tokens_used"`
	LastActivity  *time.Time `json:"last_activity"`
}

type ActivitySummary struct {
	Summary      SummaryTotals     `json:"summary"`
	UserActivity []UserActivityRow `json:"user_activity"`
}

func (s *activityService) Summary(ctx context.Context, in SummaryInput) (*ActivitySummary, error) {
	w := repo.ActivityWindow{From: in.From, ToExclusive: in.ToExclusive}

	counts, err := s.activity.SummaryCounts(ctx, in.UserID, w)
	if err != nil {
		return nil, err
	}

	out := &ActivitySummary{
		Summary: SummaryTotals{
			TotalUsers:    counts.TotalUsers,
			ActiveUsers:   counts.ActiveUsers,
			TotalSessions: counts.TotalSessions,
			TotalMessages: counts.TotalMessages,
			TotalCommands: counts.TotalCommands,
			TotalTokens:   counts.TotalTokens,
		},
		UserActivity: []UserActivityRow{},
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if in.UserID != 0 && u.ID != in.UserID {
			continue
		}
		uc, err := s.activity.UserCounts(ctx, u.ID, w)
		if err != nil {
			return nil, err
		}
		last, err := s.activity.UserLastActivity(ctx, u.ID, w)
		if err != nil {
			return nil, err
		}
		out.UserActivity = append(out.UserActivity, UserActivityRow{
			UserID:        u.ID,
			Username:      u.Username,
			SessionsCount: uc.Sessions,
			CommandsCount: uc.Commands,
			TokensUsed:    uc.Tokens,
			LastActivity:  last,
		})
	}
	return out, nil
}

type UserDetailAccount struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserDetailStatistics struct {
	TotalSessions   int64            `json:"total_sessions"`
	ActiveSessions  int64            `json:"active_sessions"`
	TotalMessages   int64            `json:"total_messages"`
	TotalCommands   int64            `json:"total_commands"`
	TotalTokensUsed int64            `json:"total_tokens_used"`
	TokensByModel   map[string]int64 `json:"tokens_by_model"`
}

type RecentSession struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	TokensUsed   int       `json:"tokens_used"`
}

type RecentCommand struct {
	ID          uuid.UUID `json:"id"`
	Command     string    `json:"command"`
	CommandType string    `json:"command_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserDetails struct {
	User           UserDetailAccount    `json:"user"`
	Statistics     UserDetailStatistics `json:"statistics"`
	RecentSessions []RecentSession      `json:"recent_sessions"`
	RecentCommands []RecentCommand      `json:"recent_commands"`
}

func (s *activityService) UserDetails(ctx context.Context, userID uint) (*UserDetails, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stats, err := s.activity.UserDetailStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.activity.RecentSessions(ctx, userID, recentSessionsLimit)
	if err != nil {
		return nil, err
	}
	commands, err := s.activity.RecentCommands(ctx, userID, recentCommandsLimit)
	if err != nil {
		return nil, err
	}

	out := &UserDetails{
		User: UserDetailAccount{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		},
		Statistics: UserDetailStatistics{
			TotalSessions:   stats.TotalSessions,
			ActiveSessions:  stats.ActiveSessions,
			TotalMessages:   stats.TotalMessages,
			TotalCommands:   stats.TotalCommands,
			TotalTokensUsed: stats.TotalTokensUsed,
			TokensByModel:   stats.TokensByModel,
		},
		RecentSessions: []RecentSession{},
		RecentCommands: []RecentCommand{},
	}
	for _, sess := range sessions {
		out.RecentSessions = append(out.RecentSessions, RecentSession{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			MessageCount: sess.MessageCount,
			TokensUsed:   sess.TotalTokensUsed,
		})
	}
	for _, cmd := range commands {
		out.RecentCommands = append(out.RecentCommands, RecentCommand{
			ID:          cmd.ID,
			Command:     previewCommand(cmd.Command),
			CommandType: cmd.CommandType,
			Status:      cmd.Status,
			CreatedAt:   cmd.CreatedAt,
		})
	}
	return out, nil
}

func nullableName(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func previewCommand(cmd string) string {
	if len(cmd) <= commandPreviewLen {
		return cmd
	}
	return cmd[:commandPreviewLen] + "..."
}
