package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
)

type CommandExecutionService interface {
	// Create logs a command execution. An unresolved or unowned session_id
	// is silently dropped, not an error.
	Create(ctx context.Context, actor Actor, in CreateCommandInput) (*model.CommandExecution, error)
	// List forces non-admin callers to their own records; admins may filter
	// by any user.
	List(ctx context.Context, actor Actor, f repo.CommandFilter, offset, limit int) ([]model.CommandExecution, int64, error)
}

type commandExecutionService struct {
	r        repo.CommandExecutionRepo
	sessions repo.SessionRepo
}

func NewCommandExecutionService(r repo.CommandExecutionRepo, sessions repo.SessionRepo) CommandExecutionService {
	return &commandExecutionService{r: r, sessions: sessions}
}

type CreateCommandInput struct {
	SessionID       *uuid.UUID `json:"session_id"`
	Command         string     `json:"command"`
	CommandType     string     `json:"command_type"`
	Output          string     `json:"output"`
	ExitCode        *int       `json:"exit_code"`
	ExecutionTimeMs *int       `json:"execution_time_ms"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message"`
	IPAddress       *string    `json:"ip_address"`
	Hostname        string     `json:"hostname"`
}

func (s *commandExecutionService) Create(ctx context.Context, actor Actor, in CreateCommandInput) (*model.CommandExecution, error) {
	fe := FieldErrors{}
	if in.Command == "" {
		fe.Add("command", "This field is required.")
	}
	switch in.CommandType {
	case model.CommandTypeShell, model.CommandTypeFileRead, model.CommandTypeFileWrite, model.CommandTypeFileEdit, model.CommandTypeOther:
	default:
		fe.Add("command_type", "Command type must be one of 'shell', 'file_read', 'file_write', 'file_edit', 'other'.")
	}
	switch in.Status {
	case model.CommandStatusSuccess, model.CommandStatusFailed, model.CommandStatusError:
	default:
		fe.Add("status", "Status must be one of 'success', 'failed', 'error'.")
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
			// Weak link: keep the audit record, drop the session reference.
		default:
			return nil, err
		}
	}

	cmd := &model.CommandExecution{
		UserID:          actor.UserID,
		SessionID:       sessionID,
		Command:         in.Command,
		CommandType:     in.CommandType,
		Output:          in.Output,
		ExitCode:        in.ExitCode,
		ExecutionTimeMs: in.ExecutionTimeMs,
		Status:          in.Status,
		ErrorMessage:    in.ErrorMessage,
		IPAddress:       in.IPAddress,
		Hostname:        in.Hostname,
	}
	if err := s.r.Create(ctx, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (s *commandExecutionService) List(ctx context.Context, actor Actor, f repo.CommandFilter, offset, limit int) ([]model.CommandExecution, int64, error) {
	if !actor.Admin {
		f.UserID = actor.UserID
	}
	return s.r.List(ctx, f, offset, limit)
}
