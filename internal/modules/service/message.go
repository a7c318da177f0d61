package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

type MessageService interface {
	List(ctx context.Context, actor Actor, f repo.MessageFilter, offset, limit int) ([]model.Message, int64, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Message, error)
	// Create appends a message to the actor's session, assigning the next
	// sequence number and recomputing the session aggregates atomically.
	Create(ctx context.Context, actor Actor, sessionID uuid.UUID, in CreateMessageInput) (*model.Message, error)
	// Update edits an owned message. sequence_number and session_id are
	// immutable; aggregates are recomputed atomically.
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateMessageInput) (*model.Message, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type messageService struct {
	r repo.MessageRepo
}

func NewMessageService(r repo.MessageRepo) MessageService {
	return &messageService{r: r}
}

func (s *messageService) List(ctx context.Context, actor Actor, f repo.MessageFilter, offset, limit int) ([]model.Message, int64, error) {
	return s.r.List(ctx, actor.UserID, f, offset, limit)
}

func (s *messageService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Message, error) {
	m, err := s.r.GetOwned(ctx, actor.UserID, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

type CreateMessageInput struct {
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	TokensUsed int     `json:"tokens_used"`
	ModelUsed  *string `json:"model_used"`
}

func (s *messageService) Create(ctx context.Context, actor Actor, sessionID uuid.UUID, in CreateMessageInput) (*model.Message, error) {
	fe := FieldErrors{}
	switch in.Role {
	case model.MessageRoleUser, model.MessageRoleAssistant, model.MessageRoleSystem:
	default:
		fe.Add("role", "Role must be one of 'user', 'assistant', 'system'.")
	}
	if in.Content == "" {
		fe.Add("content", "This field is required.")
	}
	if in.TokensUsed < 0 {
		fe.Add("tokens_used", "Ensure this value is greater than or equal to 0.")
	}
	if len(fe) > 0 {
		return nil, fe
	}

	msg := &model.Message{
		SessionID:  sessionID,
		Role:       in.Role,
		Content:    in.Content,
		TokensUsed: in.TokensUsed,
		ModelUsed:  in.ModelUsed,
	}
	_, err := s.r.Create(ctx, actor.UserID, msg)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

type UpdateMessageInput struct {
	Role       *string `json:"role"`
	Content    *string `json:"content"`
	TokensUsed *int    `json:"tokens_used"`
	ModelUsed  *string `json:"model_used"`
}

func (s *messageService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateMessageInput) (*model.Message, error) {
	fe := FieldErrors{}
	updates := map[string]interface{}{}

	if in.Role != nil {
		switch *in.Role {
		case model.MessageRoleUser, model.MessageRoleAssistant, model.MessageRoleSystem:
			updates["role"] = *in.Role
		default:
			fe.Add("role", "Role must be one of 'user', 'assistant', 'system'.")
		}
	}
	if in.Content != nil {
		if *in.Content == "" {
			fe.Add("content", "This field may not be blank.")
		} else {
			updates["content"] = *in.Content
		}
	}
	if in.TokensUsed != nil {
		if *in.TokensUsed < 0 {
			fe.Add("tokens_used", "Ensure this value is greater than or equal to 0.")
		} else {
			updates["tokens_used"] = *in.TokensUsed
		}
	}
	if in.ModelUsed != nil {
		updates["model_used"] = *in.ModelUsed
	}
	if len(fe) > 0 {
		return nil, fe
	}

	m, _, err := s.r.Update(ctx, actor.UserID, id, updates)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *messageService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := s.r.Delete(ctx, actor.UserID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
