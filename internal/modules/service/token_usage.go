package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

const (
	GroupByDay   = "day"
	GroupByWeek  = "week"
	GroupByMonth = "month"
	GroupByUser  = "user"
	GroupByModel = "model"
)

// UsageGroupings lists the accepted group_by values.
var UsageGroupings = []string{GroupByDay, GroupByWeek, GroupByMonth, GroupByUser, GroupByModel}

type TokenUsageService interface {
	// Create records token consumption. tokens_total is always computed
	// from input+output; unowned session/message links are silently nulled.
	Create(ctx context.Context, actor Actor, in CreateTokenUsageInput) (*model.TokenUsage, error)
	Statistics(ctx context.Context, actor Actor, in UsageStatsInput) (*UsageStatsOutput, error)
}

type tokenUsageService struct {
	r        repo.TokenUsageRepo
	sessions repo.SessionRepo
	messages repo.MessageRepo
}

func NewTokenUsageService(r repo.TokenUsageRepo, sessions repo.SessionRepo, messages repo.MessageRepo) TokenUsageService {
	return &tokenUsageService{r: r, sessions: sessions, messages: messages}
}

type CreateTokenUsageInput struct {
	SessionID    *uuid.UUID `json:"session_id"`
	MessageID    *uuid.UUID `json:"message_id"`
	ModelUsed    string     `json:"model_used"`
	TokensInput  int        `json:"tokens_input"`
	TokensOutput int        `json:"tokens_output"`
	CostUSD      *float64   `json:"cost_usd"`
}

func (s *tokenUsageService) Create(ctx context.Context, actor Actor, in CreateTokenUsageInput) (*model.TokenUsage, error) {
	fe := FieldErrors{}
	if in.ModelUsed == "" {
		fe.Add("model_used", "This field is required.")
	}
	if in.TokensInput < 0 {
		fe.Add("tokens_input", "Ensure this value is greater than or equal to 0.")
	}
	if in.TokensOutput < 0 {
		fe.Add("tokens_output", "Ensure this value is greater than or equal to 0.")
	}
	if len(fe) > 0 {
		return nil, fe
	}

	var sessionID *uuid.UUID
	if in.SessionID != nil {
		sess, err := s.sessions.GetOwned(ctx, actor.UserID, *in.SessionID)
		switch {
		case err == nil:
			sessionID = &sess.ID
		case errors.Is(err, repo.ErrNotFound):
			// Weak link, silently dropped.
		default:
			return nil, err
		}
	}

	var messageID *uuid.UUID
	if in.MessageID != nil {
		msg, err := s.messages.GetOwned(ctx, actor.UserID, *in.MessageID)
		switch {
		case err == nil:
			messageID = &msg.ID
		case errors.Is(err, repo.ErrNotFound):
			// Weak link, silently dropped.
		default:
			return nil, err
		}
	}

	t := &model.TokenUsage{
		UserID:       actor.UserID,
		SessionID:    sessionID,
		MessageID:    messageID,
		ModelUsed:    in.ModelUsed,
		TokensInput:  in.TokensInput,
		TokensOutput: in.TokensOutput,
		CostUSD:      in.CostUSD,
	}
	if err := s.r.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

type UsageStatsInput struct {
	// UserID filters to one user; honored for admins only. 0 means all.
	UserID      uint
	ModelUsed   string
	From        *time.Time
	ToExclusive *time.Time
	// FromRaw/ToRaw echo the original date strings in the period block when
	// an explicit range was supplied.
	FromRaw string
	ToRaw   string
	GroupBy string
}

type UsagePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type UsageBreakdownItem struct {
	GroupKey     string   `json:"group_key"`
	TokensTotal  int64    `json:"tokens_total"`
	TokensInput  int64    `json:"tokens_input"`
	TokensOutput int64    `json:"tokens_output"`
	CostUSD      *float64 `json:"cost_usd"`

	sortKey string
}

type UsageStatsOutput struct {
	TotalTokens  int64                `json:"total_tokens"`
	TotalCostUSD *float64             `json:"total_cost_usd"`
	Period       UsagePeriod          `json:"period"`
	Breakdown    []UsageBreakdownItem `json:"breakdown"`
}

func (s *tokenUsageService) Statistics(ctx context.Context, actor Actor, in UsageStatsInput) (*UsageStatsOutput, error) {
	f := repo.UsageFilter{
		ModelUsed:   in.ModelUsed,
		From:        in.From,
		ToExclusive: in.ToExclusive,
	}
	if actor.Admin {
		f.UserID = in.UserID
	} else {
		f.UserID = actor.UserID
	}

	rows, err := s.r.ListFiltered(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &UsageStatsOutput{Breakdown: []UsageBreakdownItem{}}

	var totalCost float64
	var hasCost bool
	for _, row := range rows {
		out.TotalTokens += int64(row.TokensTotal)
		if row.CostUSD != nil {
			totalCost += *row.CostUSD
			hasCost = true
		}
	}
	if hasCost {
		out.TotalCostUSD = &totalCost
	}

	out.Period = usagePeriod(in, rows)

	groupBy := in.GroupBy
	if groupBy == "" {
		groupBy = GroupByDay
	}
	// group_by=user is admin-only; for anyone else it silently yields no
	// groups rather than an error.
	if groupBy != GroupByUser || actor.Admin {
		out.Breakdown = groupUsage(rows, groupBy)
	}
	return out, nil
}

func usagePeriod(in UsageStatsInput, rows []model.TokenUsage) UsagePeriod {
	if in.FromRaw != "" && in.ToRaw != "" {
		return UsagePeriod{From: in.FromRaw, To: in.ToRaw}
	}
	if len(rows) == 0 {
		today := time.Now().UTC().Format("2006-01-02")
		return UsagePeriod{From: today, To: today}
	}
	// Rows are ordered by created_at ascending.
	return UsagePeriod{
		From: rows[0].CreatedAt.UTC().Format("2006-01-02"),
		To:   rows[len(rows)-1].CreatedAt.UTC().Format("2006-01-02"),
	}
}

func groupUsage(rows []model.TokenUsage, groupBy string) []UsageBreakdownItem {
	type bucket struct {
		item    *UsageBreakdownItem
		cost    float64
		hasCost bool
	}
	buckets := map[string]*bucket{}

	for _, row := range rows {
		key, sortKey := usageGroupKey(row, groupBy)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{item: &UsageBreakdownItem{GroupKey: key, sortKey: sortKey}}
			buckets[key] = b
		}
		b.item.TokensTotal += int64(row.TokensTotal)
		b.item.TokensInput += int64(row.TokensInput)
		b.item.TokensOutput += int64(row.TokensOutput)
		if row.CostUSD != nil {
			b.cost += *row.CostUSD
			b.hasCost = true
		}
	}

	items := make([]UsageBreakdownItem, 0, len(buckets))
	for _, b := range buckets {
		if b.hasCost {
			cost := b.cost
			b.item.CostUSD = &cost
		}
		items = append(items, *b.item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].sortKey < items[j].sortKey })
	return items
}

func usageGroupKey(row model.TokenUsage, groupBy string) (key, sortKey string) {
	t := row.CreatedAt.UTC()
	switch groupBy {
	case GroupByWeek:
		// Week buckets start on Monday.
		monday := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
		key = monday.Format("2006-01-02")
		return key, key
	case GroupByMonth:
		key = t.Format("2006-01")
		return key, key
	case GroupByUser:
		username := ""
		if row.User != nil {
			username = row.User.Username
		}
		key = fmt.Sprintf("%s (ID: %d)", username, row.UserID)
		return key, fmt.Sprintf("%012d", row.UserID)
	case GroupByModel:
		key = row.ModelUsed
		if key == "" {
			key = "Unknown"
		}
		return key, key
	default: // day
		key = t.Format("2006-01-02")
		return key, key
	}
}
