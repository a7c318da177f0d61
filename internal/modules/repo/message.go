package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"gorm.io/gorm"
)

// MessageFilter narrows list queries. Zero values mean "no filter"; the
// permissive-parsing policy upstream guarantees only valid values arrive.
type MessageFilter struct {
	SessionID uuid.UUID
	Role      string
	ModelUsed string
}

type MessageRepo interface {
	// List returns messages across all sessions owned by userID, ordered by
	// (sequence_number, created_at).
	List(ctx context.Context, userID uint, f MessageFilter, offset, limit int) ([]model.Message, int64, error)
	// GetOwned fetches a message whose session belongs to userID.
	GetOwned(ctx context.Context, userID uint, id uuid.UUID) (*model.Message, error)
	// Create inserts msg into the owner's session, assigning the next
	// sequence number, and updates the session aggregates atomically.
	Create(ctx context.Context, userID uint, msg *model.Message) (*model.Session, error)
	// Update applies the given column updates to an owned message and
	// recomputes its session's aggregates atomically. sequence_number and
	// session_id never change.
	Update(ctx context.Context, userID uint, id uuid.UUID, updates map[string]interface{}) (*model.Message, *model.Session, error)
	// Delete removes an owned message and recomputes its session's
	// aggregates atomically.
	Delete(ctx context.Context, userID uint, id uuid.UUID) error
}

type messageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) List(ctx context.Context, userID uint, f MessageFilter, offset, limit int) ([]model.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Message{}).
		Joins("JOIN sessions ON sessions.id = messages.session_id").
		Where("sessions.user_id = ?", userID)

	if f.SessionID != uuid.Nil {
		q = q.Where("messages.session_id = ?", f.SessionID)
	}
	if f.Role != "" {
		q = q.Where("messages.role = ?", f.Role)
	}
	if f.ModelUsed != "" {
		q = q.Where("messages.model_used = ?", f.ModelUsed)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Message
	err := q.Order("messages.sequence_number ASC, messages.created_at ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, count, err
}

func (r *messageRepo) GetOwned(ctx context.Context, userID uint, id uuid.UUID) (*model.Message, error) {
	var m model.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.id = messages.session_id").
		Where("messages.id = ? AND sessions.user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) Create(ctx context.Context, userID uint, msg *model.Message) (*model.Session, error) {
	sess, err := applyMessageChangeRetrying(ctx, r.db, userID, msg.SessionID, func(tx *gorm.DB, _ *model.Session) error {
		seq, err := nextSequence(tx, msg.SessionID)
		if err != nil {
			return err
		}
		msg.SequenceNumber = seq
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *messageRepo) Update(ctx context.Context, userID uint, id uuid.UUID, updates map[string]interface{}) (*model.Message, *model.Session, error) {
	existing, err := r.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	var updated model.Message
	sess, err := applyMessageChangeRetrying(ctx, r.db, userID, existing.SessionID, func(tx *gorm.DB, _ *model.Session) error {
		if len(updates) > 0 {
			if err := tx.Model(&model.Message{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, sess, nil
}

func (r *messageRepo) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	existing, err := r.GetOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	_, err = applyMessageChangeRetrying(ctx, r.db, userID, existing.SessionID, func(tx *gorm.DB, _ *model.Session) error {
		return tx.Delete(&model.Message{}, "id = ?", id).Error
	})
	return err
}

func applyMessageChangeRetrying(ctx context.Context, db *gorm.DB, userID uint, sessionID uuid.UUID, change func(tx *gorm.DB, sess *model.Session) error) (*model.Session, error) {
	var sess *model.Session
	var err error
	for attempt := 0; attempt < sequenceRetries; attempt++ {
		sess, err = applyMessageChange(ctx, db, userID, sessionID, change)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return sess, err
		}
	}
	return sess, err
}
