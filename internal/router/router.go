package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zapfix-io/zapfix/internal/config"
	"github.com/zapfix-io/zapfix/internal/middleware"
	"github.com/zapfix-io/zapfix/internal/modules/handler"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/pkg/authtoken"
	"github.com/zapfix-io/zapfix/internal/telemetry"
)

type RouterDeps struct {
	Config         *config.Config
	Log            *zap.Logger
	Tokens         *authtoken.Manager
	Users          repo.UserRepo
	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	MessageHandler *handler.MessageHandler
	CommandHandler *handler.CommandExecutionHandler
	TokenHandler   *handler.TokenUsageHandler
	AdminHandler   *handler.AdminHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(telemetry.GinMiddleware(d.Config.App.Name))
		r.Use(telemetry.TraceIDMiddleware())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", d.AuthHandler.Login)
			auth.POST("/token/refresh", d.AuthHandler.Refresh)
		}

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(d.Tokens, d.Users))
		{
			authed.POST("/auth/logout", d.AuthHandler.Logout)
			authed.POST("/auth/register", middleware.AdminRequired(), d.AuthHandler.Register)

			sessions := authed.Group("/sessions")
			{
				sessions.GET("", d.SessionHandler.ListSessions)
				sessions.POST("", d.SessionHandler.CreateSession)
				sessions.GET("/:session_id", d.SessionHandler.GetSession)
				sessions.PATCH("/:session_id", d.SessionHandler.UpdateSession)
				sessions.POST("/:session_id/messages", d.SessionHandler.AddMessage)
			}

			messages := authed.Group("/messages")
			{
				messages.GET("", d.MessageHandler.ListMessages)
				messages.GET("/:message_id", d.MessageHandler.GetMessage)
				messages.PUT("/:message_id", d.MessageHandler.UpdateMessage)
				messages.PATCH("/:message_id", d.MessageHandler.UpdateMessage)
				messages.DELETE("/:message_id", d.MessageHandler.DeleteMessage)
			}

			commands := authed.Group("/commands")
			{
				commands.GET("", d.CommandHandler.ListCommands)
				commands.POST("", d.CommandHandler.CreateCommand)
			}

			tokens := authed.Group("/tokens")
			{
				tokens.POST("", d.TokenHandler.CreateTokenUsage)
				tokens.GET("/usage", d.TokenHandler.GetUsageStatistics)
			}

			admin := authed.Group("/admin")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("/users", d.AdminHandler.ListUsers)
				admin.GET("/activity", d.AdminHandler.ActivitySummary)
				admin.GET("/user/:user_id/details", d.AdminHandler.UserDetails)
			}
		}
	}
	return r
}
