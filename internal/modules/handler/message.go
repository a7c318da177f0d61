package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zapfix-io/zapfix/internal/middleware"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/filterparse"
	"github.com/zapfix-io/zapfix/internal/pkg/paging"
)

const (
	messagePageSize    = 50
	messageMaxPageSize = 200
)

type MessageHandler struct {
	svc service.MessageService
}

func NewMessageHandler(s service.MessageService) *MessageHandler {
	return &MessageHandler{svc: s}
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	p := paging.Parse(c.Request.URL.Query(), messagePageSize, messageMaxPageSize)
	f := repo.MessageFilter{
		SessionID: filterparse.UUID(c.Query("session_id")),
		Role:      filterparse.Enum(c.Query("role"), model.MessageRoles),
		ModelUsed: c.Query("model_used"),
	}

	items, count, err := h.svc.List(c.Request.Context(), actor, f, p.Offset(), p.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, paging.NewEnvelope(c.Request, p, count, items))
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("message_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
		return
	}

	msg, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, msg)
}

// UpdateMessage serves both PUT and PATCH. sequence_number and session_id
// are never writable; the session counters are refreshed transactionally.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("message_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
		return
	}

	req := service.UpdateMessageInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	msg, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
		default:
			if fe, ok := service.AsFieldErrors(err); ok {
				c.JSON(http.StatusBadRequest, fe)
				return
			}
			c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		}
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("message_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFound("Message"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.Status(http.StatusNoContent)
}
