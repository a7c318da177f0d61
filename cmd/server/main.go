package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zapfix-io/zapfix/internal/bootstrap"
	"github.com/zapfix-io/zapfix/internal/config"
	"github.com/zapfix-io/zapfix/internal/infra/cache"
	"github.com/zapfix-io/zapfix/internal/infra/db"
	"github.com/zapfix-io/zapfix/internal/modules/handler"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/pkg/authtoken"
	"github.com/zapfix-io/zapfix/internal/router"
	"github.com/zapfix-io/zapfix/internal/telemetry"
)

func main() {
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Fatal("setup tracing", zap.Error(err))
	}

	gdb := do.MustInvoke[*gorm.DB](inj)
	rdb := do.MustInvoke[*redis.Client](inj)
	if tp != nil {
		if err := db.RegisterOpenTelemetryPlugin(gdb); err != nil {
			log.Warn("gorm tracing plugin", zap.Error(err))
		}
		if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
			log.Warn("redis tracing plugin", zap.Error(err))
		}
	}

	engine := router.NewRouter(router.RouterDeps{
		Config:         cfg,
		Log:            log,
		Tokens:         do.MustInvoke[*authtoken.Manager](inj),
		Users:          do.MustInvoke[repo.UserRepo](inj),
		AuthHandler:    do.MustInvoke[*handler.AuthHandler](inj),
		SessionHandler: do.MustInvoke[*handler.SessionHandler](inj),
		MessageHandler: do.MustInvoke[*handler.MessageHandler](inj),
		CommandHandler: do.MustInvoke[*handler.CommandExecutionHandler](inj),
		TokenHandler:   do.MustInvoke[*handler.TokenUsageHandler](inj),
		AdminHandler:   do.MustInvoke[*handler.AdminHandler](inj),
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(ctx); err != nil {
		log.Error("telemetry shutdown", zap.Error(err))
	}
	if err := cache.Close(rdb); err != nil {
		log.Error("redis close", zap.Error(err))
	}
}
