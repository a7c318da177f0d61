package serializer

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/service"
)

// ErrorResponse is the envelope for every non-validation failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// FieldErrorResponse carries per-field validation messages keyed by field
// name, each holding one or more messages.
type FieldErrorResponse struct {
	Success bool                `json:"success"`
	Errors  map[string][]string `json:"errors"`
}

// Err builds an error envelope. The underlying error detail is only exposed
// outside release mode.
func Err(msg string, err error) ErrorResponse {
	res := ErrorResponse{Error: msg}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		res.Detail = fmt.Sprintf("%+v", err)
	}
	return res
}

// DBErr
func DBErr(msg string, err error) ErrorResponse {
	if msg == "" {
		msg = "database error"
	}
	return Err(msg, err)
}

// AuthErr
func AuthErr(msg string) ErrorResponse {
	if msg == "" {
		msg = "authentication error"
	}
	return Err(msg, nil)
}

// NotFound masks both missing and unowned records behind the same body.
func NotFound(resource string) ErrorResponse {
	return Err(resource+" not found", nil)
}

// FieldErrs wraps validation failures field by field.
func FieldErrs(fe service.FieldErrors) FieldErrorResponse {
	return FieldErrorResponse{Errors: fe}
}

// UserView is the public account shape shared by auth responses.
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	AdminID  *uint  `json:"admin_id"`
}

func BuildUser(u *model.User) UserView {
	v := UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     model.RoleUser,
	}
	if u.Profile != nil {
		v.Role = u.Profile.Role
		v.AdminID = u.Profile.AdminID
	}
	return v
}

// CommandExecutionView adds the owning username to the audit record.
type CommandExecutionView struct {
	model.CommandExecution
	Username string `json:"username"`
}

func BuildCommandExecution(c *model.CommandExecution) CommandExecutionView {
	v := CommandExecutionView{CommandExecution: *c}
	if c.User != nil {
		v.Username = c.User.Username
	}
	return v
}

func BuildCommandExecutions(items []model.CommandExecution) []CommandExecutionView {
	views := make([]CommandExecutionView, 0, len(items))
	for i := range items {
		views = append(views, BuildCommandExecution(&items[i]))
	}
	return views
}
