package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/filterparse"
)

// AdminHandler serves the reporting endpoints behind the admin gate.
type AdminHandler struct {
	svc service.ActivityService
}

func NewAdminHandler(s service.ActivityService) *AdminHandler {
	return &AdminHandler{svc: s}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsersWithStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) ActivitySummary(c *gin.Context) {
	from, to := filterparse.DateRange(c.Query("date_from"), c.Query("date_to"))
	in := service.SummaryInput{
		UserID:      filterparse.UserID(c.Query("user_id")),
		From:        from,
		ToExclusive: to,
	}

	out, err := h.svc.Summary(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) UserDetails(c *gin.Context) {
	userID := filterparse.UserID(c.Param("user_id"))
	if userID == 0 {
		c.JSON(http.StatusNotFound, serializer.Err("User not found", nil))
		return
	}

	out, err := h.svc.UserDetails(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, serializer.Err("User not found", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, out)
}
