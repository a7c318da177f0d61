package repo

import (
	"context"
	"time"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"gorm.io/gorm"
)

// CommandFilter narrows command listings. Zero values mean "no filter";
// ToExclusive is the exclusive upper bound of the day-granularity range.
type CommandFilter struct {
	UserID      uint
	CommandType string
	Status      string
	From        *time.Time
	ToExclusive *time.Time
}

type CommandExecutionRepo interface {
	Create(ctx context.Context, c *model.CommandExecution) error
	// List returns matching executions newest-first with the owning user
	// preloaded.
	List(ctx context.Context, f CommandFilter, offset, limit int) ([]model.CommandExecution, int64, error)
}

type commandExecutionRepo struct{ db *gorm.DB }

func NewCommandExecutionRepo(db *gorm.DB) CommandExecutionRepo {
	return &commandExecutionRepo{db: db}
}

func (r *commandExecutionRepo) Create(ctx context.Context, c *model.CommandExecution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *commandExecutionRepo) List(ctx context.Context, f CommandFilter, offset, limit int) ([]model.CommandExecution, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.CommandExecution{})

	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CommandType != "" {
		q = q.Where("command_type = ?", f.CommandType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.ToExclusive != nil {
		q = q.Where("created_at < ?", *f.ToExclusive)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var items []model.CommandExecution
	err := q.Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, count, err
}
