package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{svc: s}
}

// Register creates a user plus profile. Only reachable behind the admin gate.
func (h *AuthHandler) Register(c *gin.Context) {
	req := service.RegisterInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.FieldErrorResponse{
			Errors: map[string][]string{"non_field_errors": {"Invalid request body."}},
		})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		if fe, ok := service.AsFieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, serializer.FieldErrs(fe))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    serializer.BuildUser(user),
		"message": "User created successfully",
	})
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	req := LoginReq{}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, serializer.Err("Username and password are required", err))
		return
	}

	out, err := h.svc.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotExist):
			c.JSON(http.StatusUnauthorized, serializer.AuthErr("User does not exist"))
		case errors.Is(err, service.ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, serializer.AuthErr("Invalid password"))
		case errors.Is(err, service.ErrInactiveAccount):
			c.JSON(http.StatusUnauthorized, serializer.AuthErr("User account is inactive"))
		case errors.Is(err, service.ErrNotProvisioned):
			c.JSON(http.StatusUnauthorized, serializer.AuthErr("User account is not provisioned"))
		default:
			c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"token":         out.AccessToken,
		"refresh_token": out.RefreshToken,
		"user":          serializer.BuildUser(out.User),
	})
}

type LogoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout blacklists the refresh token when one is supplied. Always succeeds
// for authenticated callers.
func (h *AuthHandler) Logout(c *gin.Context) {
	req := LogoutReq{}
	// Absent or malformed body still logs out.
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, serializer.Err("logout failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

type RefreshReq struct {
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	req := RefreshReq{}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, serializer.Err("Refresh token is required", err))
		return
	}

	access, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, serializer.AuthErr("Token is invalid or expired"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}
