package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by owner-scoped fetches when the row does not
// exist or belongs to someone else. Callers must not distinguish the two.
var ErrNotFound = errors.New("record not found")

// sequenceRetries bounds the retry loop on sequence-number collisions. With
// the session row locked FOR UPDATE collisions cannot happen on postgres;
// the unique index plus retry is the backstop under weaker isolation.
const sequenceRetries = 3

type SessionRepo interface {
	Create(ctx context.Context, s *model.Session) error
	// GetOwned fetches a session by id scoped to its owner; missing and
	// not-owned are both ErrNotFound.
	GetOwned(ctx context.Context, userID uint, id uuid.UUID) (*model.Session, error)
	ListByOwner(ctx context.Context, userID uint, status string, offset, limit int) ([]model.Session, int64, error)
	Update(ctx context.Context, s *model.Session) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error)
	// ApplyMessageChange runs change inside one transaction with the owner's
	// session row locked, then recomputes message_count, total_tokens_used
	// and last_activity_at before committing. Every message mutation goes
	// through here.
	ApplyMessageChange(ctx context.Context, userID uint, sessionID uuid.UUID, change func(tx *gorm.DB, sess *model.Session) error) (*model.Session, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepo(db *gorm.DB) SessionRepo {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetOwned(ctx context.Context, userID uint, id uuid.UUID) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) ListByOwner(ctx context.Context, userID uint, status string, offset, limit int) ([]model.Session, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Session{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Session
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, count, err
}

func (r *sessionRepo) Update(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number ASC, created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *sessionRepo) ApplyMessageChange(ctx context.Context, userID uint, sessionID uuid.UUID, change func(tx *gorm.DB, sess *model.Session) error) (*model.Session, error) {
	return applyMessageChangeRetrying(ctx, r.db, userID, sessionID, change)
}

// applyMessageChange is shared with the message repo: both live in this
// package so every mutation path funnels through the same transactional
// unit.
func applyMessageChange(ctx context.Context, db *gorm.DB, userID uint, sessionID uuid.UUID, change func(tx *gorm.DB, sess *model.Session) error) (*model.Session, error) {
	var out model.Session
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		q := tx.Where("id = ? AND user_id = ?", sessionID, userID)
		// sqlite has no row locks; its single-writer model covers this.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.First(&sess).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := change(tx, &sess); err != nil {
			return err
		}

		if err := recomputeAggregates(tx, &sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// recomputeAggregates recounts the session's messages and re-sums their
// tokens, then stamps last_activity_at. Runs inside the mutation
// transaction so readers never observe a message without its counters.
func recomputeAggregates(tx *gorm.DB, sess *model.Session) error {
	var count int64
	if err := tx.Model(&model.Message{}).
		Where("session_id = ?", sess.ID).
		Count(&count).Error; err != nil {
		return err
	}

	var sum int64
	if err := tx.Model(&model.Message{}).
		Where("session_id = ?", sess.ID).
		Select("COALESCE(SUM(tokens_used), 0)").
		Scan(&sum).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	sess.MessageCount = int(count)
	sess.TotalTokensUsed = int(sum)
	sess.LastActivityAt = now
	return tx.Model(&model.Session{}).
		Where("id = ?", sess.ID).
		Updates(map[string]interface{}{
			"message_count":     count,
			"total_tokens_used": sum,
			"last_activity_at":  now,
		}).Error
}

// nextSequence returns max(sequence_number)+1 for the session. Must run
// inside the ApplyMessageChange transaction, after the session lock.
func nextSequence(tx *gorm.DB, sessionID uuid.UUID) (int, error) {
	var max int64
	err := tx.Model(&model.Message{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return int(max) + 1, nil
}
