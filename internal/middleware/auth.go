package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/modules/serializer"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/authtoken"
)

const identityKey = "identity"

// Identity is the authenticated account attached to the request context.
type Identity struct {
	User *model.User
}

func (i *Identity) IsAdmin() bool {
	return i.User.Profile != nil && i.User.Profile.IsAdmin()
}

// Actor reduces the identity to the ownership scope services work with.
func (i *Identity) Actor() service.Actor {
	return service.Actor{UserID: i.User.ID, Admin: i.IsAdmin()}
}

// FromContext returns the identity set by JWTAuth, nil outside authed routes.
func FromContext(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}

// JWTAuth authenticates requests with a bearer access token, loads the
// account and its profile, and sets the identity in the context. The user_id
// attribute is set on the current span for telemetry filtering.
func JWTAuth(tokens *authtoken.Manager, users repo.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx, authSpan := otel.Tracer("middleware").Start(ctx, "jwt_auth",
			trace.WithAttributes(attribute.String("middleware", "jwt_auth")))

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Authentication credentials were not provided."))
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		claims, err := tokens.Parse(raw, authtoken.TypeAccess)
		if err != nil {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Invalid or expired token."))
			return
		}

		user, err := users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				authSpan.SetAttributes(attribute.Bool("authenticated", false))
				authSpan.End()
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Invalid or expired token."))
				return
			}
			authSpan.RecordError(err)
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
			return
		}
		if !user.IsActive {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Account is disabled."))
			return
		}

		rootSpan := trace.SpanFromContext(c.Request.Context())
		if rootSpan.SpanContext().IsValid() {
			rootSpan.SetAttributes(attribute.Int("user_id", int(user.ID)))
		}

		authSpan.SetAttributes(
			attribute.Int("user_id", int(user.ID)),
			attribute.Bool("authenticated", true),
		)
		authSpan.End()

		c.Set(identityKey, &Identity{User: user})
		c.Next()
	}
}

// AdminRequired gates a route group to admin-role accounts. Must run after
// JWTAuth.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := FromContext(c)
		if id == nil || !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, serializer.AuthErr("Admin privileges required."))
			return
		}
		c.Next()
	}
}
