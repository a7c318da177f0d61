package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapfix-io/zapfix/internal/middleware"
	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/filterparse"
)

type TokenUsageHandler struct {
	svc service.TokenUsageService
}

func NewTokenUsageHandler(s service.TokenUsageService) *TokenUsageHandler {
	return &TokenUsageHandler{svc: s}
}

func (h *TokenUsageHandler) CreateTokenUsage(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	req := service.CreateTokenUsageInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	usage, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		if fe, ok := service.AsFieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, fe)
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, usage)
}

func (h *TokenUsageHandler) GetUsageStatistics(c *gin.Context) {
	actor := middleware.FromContext(c).Actor()

	fromRaw := c.Query("date_from")
	toRaw := c.Query("date_to")
	from, to := filterparse.DateRange(fromRaw, toRaw)

	in := service.UsageStatsInput{
		UserID:      filterparse.UserID(c.Query("user_id")),
		ModelUsed:   c.Query("model_used"),
		From:        from,
		ToExclusive: to,
		GroupBy:     filterparse.Enum(c.Query("group_by"), service.UsageGroupings),
	}
	// Echo the requested range only when both bounds parsed.
	if from != nil && to != nil {
		in.FromRaw = fromRaw
		in.ToRaw = toRaw
	}

	out, err := h.svc.Statistics(c.Request.Context(), actor, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, out)
}
