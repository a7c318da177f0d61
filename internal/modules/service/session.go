package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

// Actor identifies the authenticated caller for ownership and role checks.
type Actor struct {
	UserID uint
	Admin  bool
}

type SessionService interface {
	Create(ctx context.Context, actor Actor, title string) (*model.Session, error)
	// List returns the actor's own sessions newest-created-first. status is
	// already validated by the permissive filter parser; "" means all.
	List(ctx context.Context, actor Actor, status string, offset, limit int) ([]model.Session, int64, error)
	// GetDetail returns a session with its messages ordered by
	// (sequence_number, created_at); missing or not-owned is ErrNotFound.
	GetDetail(ctx context.Context, actor Actor, id uuid.UUID) (*model.Session, []model.Message, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateSessionInput) (*model.Session, []model.Message, error)
}

type sessionService struct {
	r repo.SessionRepo
}

func NewSessionService(r repo.SessionRepo) SessionService {
	return &sessionService{r: r}
}

func (s *sessionService) Create(ctx context.Context, actor Actor, title string) (*model.Session, error) {
	if len(title) > 200 {
		fe := FieldErrors{}
		fe.Add("title", "Ensure this field has no more than 200 characters.")
		return nil, fe
	}
	sess := &model.Session{
		UserID: actor.UserID,
		Title:  title,
		Status: model.SessionStatusActive,
	}
	if err := s.r.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *sessionService) List(ctx context.Context, actor Actor, status string, offset, limit int) ([]model.Session, int64, error) {
	return s.r.ListByOwner(ctx, actor.UserID, status, offset, limit)
}

func (s *sessionService) GetDetail(ctx context.Context, actor Actor, id uuid.UUID) (*model.Session, []model.Message, error) {
	sess, err := s.r.GetOwned(ctx, actor.UserID, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	msgs, err := s.r.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, msgs, nil
}

type UpdateSessionInput struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

func (s *sessionService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateSessionInput) (*model.Session, []model.Message, error) {
	fe := FieldErrors{}
	if in.Title != nil && len(*in.Title) > 200 {
		fe.Add("title", "Ensure this field has no more than 200 characters.")
	}
	if in.Status != nil {
		switch *in.Status {
		case model.SessionStatusActive, model.SessionStatusCompleted, model.SessionStatusArchived:
		default:
			fe.Add("status", "Status must be one of 'active', 'completed', 'archived'.")
		}
	}
	if len(fe) > 0 {
		return nil, nil, fe
	}

	sess, err := s.r.GetOwned(ctx, actor.UserID, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if in.Title != nil {
		sess.Title = *in.Title
	}
	if in.Status != nil {
		sess.Status = *in.Status
	}
	if err := s.r.Update(ctx, sess); err != nil {
		return nil, nil, err
	}

	msgs, err := s.r.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, msgs, nil
}
