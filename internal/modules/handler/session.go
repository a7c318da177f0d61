package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zapfix-io/zapfix/internal/middleware"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/filterparse"
	"github.com/zapfix-io/zapfix/internal/pkg/paging"
)

const (
	sessionPageSize    = 20
	sessionMaxPageSize = 100
)

type SessionHandler struct {
	svc      service.SessionService
	messages service.MessageService
}

func NewSessionHandler(s service.SessionService, messages service.MessageService) *SessionHandler {
	return &SessionHandler{svc: s, messages: messages}
}

// SessionDetail embeds the ordered message list in the session payload.
type SessionDetail struct {
	model.Session
	Messages []model.Message `json:"messages"`
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	p := paging.Parse(c.Request.URL.Query(), sessionPageSize, sessionMaxPageSize)
	status := filterparse.Enum(c.Query("status"), model.SessionStatuses)

	items, count, err := h.svc.List(c.Request.Context(), actor, status, p.Offset(), p.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, paging.NewEnvelope(c.Request, p, count, items))
}

type CreateSessionReq struct {
	Title string `json:"title"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	req := CreateSessionReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	actor := middleware.FromContext(c).Actor()
	session, err := h.svc.Create(c.Request.Context(), actor, req.Title)
	if err != nil {
		if fe, ok := service.AsFieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, fe)
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("session_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
		return
	}

	session, messages, err := h.svc.GetDetail(c.Request.Context(), actor, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, SessionDetail{Session: *session, Messages: messages})
}

func (h *SessionHandler) UpdateSession(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("session_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
		return
	}

	req := service.UpdateSessionInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	session, messages, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
		default:
			if fe, ok := service.AsFieldErrors(err); ok {
				c.JSON(http.StatusBadRequest, fe)
				return
			}
			c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		}
		return
	}

	c.JSON(http.StatusOK, SessionDetail{Session: *session, Messages: messages})
}

// AddMessage appends a message to an owned session, assigning the next
// sequence number and refreshing the session counters.
func (h *SessionHandler) AddMessage(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	id := filterparse.UUID(c.Param("session_id"))
	if id == uuid.Nil {
		c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
		return
	}

	req := service.CreateMessageInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), actor, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, serializer.NotFound("Session"))
		default:
			if fe, ok := service.AsFieldErrors(err); ok {
				c.JSON(http.StatusBadRequest, fe)
				return
			}
			c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}
