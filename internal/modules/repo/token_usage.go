package repo

import (
	"context"
	"time"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"gorm.io/gorm"
)

// UsageFilter narrows token-usage queries. Zero values mean "no filter".
type UsageFilter struct {
	UserID      uint
	ModelUsed   string
	From        *time.Time
	ToExclusive *time.Time
}

type TokenUsageRepo interface {
	Create(ctx context.Context, t *model.TokenUsage) error
	// ListFiltered returns every matching row oldest-first with the owning
	// user preloaded; the statistics service aggregates in memory.
	ListFiltered(ctx context.Context, f UsageFilter) ([]model.TokenUsage, error)
}

type tokenUsageRepo struct{ db *gorm.DB }

func NewTokenUsageRepo(db *gorm.DB) TokenUsageRepo {
	return &tokenUsageRepo{db: db}
}

func (r *tokenUsageRepo) Create(ctx context.Context, t *model.TokenUsage) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tokenUsageRepo) ListFiltered(ctx context.Context, f UsageFilter) ([]model.TokenUsage, error) {
	q := r.db.WithContext(ctx).Model(&model.TokenUsage{})

	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ModelUsed != "" {
		q = q.Where("model_used = ?", f.ModelUsed)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.ToExclusive != nil {
		q = q.Where("created_at < ?", *f.ToExclusive)
	}

	var items []model.TokenUsage
	err := q.Preload("User").Order("created_at ASC").Find(&items).Error
	return items, err
}
