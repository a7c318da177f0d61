package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapfix-io/zapfix/internal/middleware"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/filterparse"
	"github.com/zapfix-io/zapfix/internal/pkg/paging"
)

const (
	commandPageSize    = 20
	commandMaxPageSize = 100
)

type CommandExecutionHandler struct {
	svc service.CommandExecutionService
}

func NewCommandExecutionHandler(s service.CommandExecutionService) *CommandExecutionHandler {
	return &CommandExecutionHandler{svc: s}
}

func (h *CommandExecutionHandler) ListCommands(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	p := paging.Parse(c.Request.URL.Query(), commandPageSize, commandMaxPageSize)
	from, to := filterparse.DateRange(c.Query("date_from"), c.Query("date_to"))
	f := repo.CommandFilter{
		UserID:      filterparse.UserID(c.Query("user_id")),
		CommandType: filterparse.Enum(c.Query("command_type"), model.CommandTypes),
		Status:      filterparse.Enum(c.Query("status"), model.CommandStatuses),
		From:        from,
		ToExclusive: to,
	}

	items, count, err := h.svc.List(c.Request.Context(), actor, f, p.Offset(), p.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, paging.NewEnvelope(c.Request, p, count, serializer.BuildCommandExecutions(items)))
}

func (h *CommandExecutionHandler) CreateCommand(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	req := service.CreateCommandInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}
	if req.IPAddress == nil {
		ip := c.ClientIP()
		if ip != "" {
			req.IPAddress = &ip
		}
	}

	cmd, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		if fe, ok := service.AsFieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, fe)
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           cmd.ID,
		"command":      cmd.Command,
		"command_type": cmd.CommandType,
		"status":       cmd.Status,
		"created_at":   cmd.CreatedAt,
	})
}
