package bootstrap

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zapfix-io/zapfix/internal/config"
	"github.com/zapfix-io/zapfix/internal/infra/cache"
	"github.com/zapfix-io/zapfix/internal/infra/db"
	"github.com/zapfix-io/zapfix/internal/infra/logger"
	"github.com/zapfix-io/zapfix/internal/modules/handler"
	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/modules/service"
	"github.com/zapfix-io/zapfix/internal/pkg/authtoken"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(
				&model.User{},
				&model.Profile{},
				&model.Session{},
				&model.Message{},
				&model.CommandExecution{},
				&model.TokenUsage{},
			)
		}

		// ensure default admin exists
		if err := EnsureDefaultAdminExists(context.Background(), d, cfg, log); err != nil {
			return nil, err
		}

		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg)
	})

	// Tokens
	do.Provide(inj, func(i *do.Injector) (*authtoken.Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return authtoken.NewManager(
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.AccessTTLMin)*time.Minute,
			time.Duration(cfg.Auth.RefreshTTLHours)*time.Hour,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*authtoken.Blacklist, error) {
		return authtoken.NewBlacklist(do.MustInvoke[*redis.Client](i)), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.SessionRepo, error) {
		return repo.NewSessionRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.MessageRepo, error) {
		return repo.NewMessageRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.CommandExecutionRepo, error) {
		return repo.NewCommandExecutionRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.TokenUsageRepo, error) {
		return repo.NewTokenUsageRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ActivityRepo, error) {
		return repo.NewActivityRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.AuthService, error) {
		return service.NewAuthService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[*authtoken.Manager](i),
			do.MustInvoke[*authtoken.Blacklist](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.SessionService, error) {
		return service.NewSessionService(do.MustInvoke[repo.SessionRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.MessageService, error) {
		return service.NewMessageService(do.MustInvoke[repo.MessageRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.CommandExecutionService, error) {
		return service.NewCommandExecutionService(
			do.MustInvoke[repo.CommandExecutionRepo](i),
			do.MustInvoke[repo.SessionRepo](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.TokenUsageService, error) {
		return service.NewTokenUsageService(
			do.MustInvoke[repo.TokenUsageRepo](i),
			do.MustInvoke[repo.SessionRepo](i),
			do.MustInvoke[repo.MessageRepo](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ActivityService, error) {
		return service.NewActivityService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.ActivityRepo](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.AuthHandler, error) {
		return handler.NewAuthHandler(do.MustInvoke[service.AuthService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.SessionHandler, error) {
		return handler.NewSessionHandler(
			do.MustInvoke[service.SessionService](i),
			do.MustInvoke[service.MessageService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.MessageHandler, error) {
		return handler.NewMessageHandler(do.MustInvoke[service.MessageService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.CommandExecutionHandler, error) {
		return handler.NewCommandExecutionHandler(do.MustInvoke[service.CommandExecutionService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.TokenUsageHandler, error) {
		return handler.NewTokenUsageHandler(do.MustInvoke[service.TokenUsageService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AdminHandler, error) {
		return handler.NewAdminHandler(do.MustInvoke[service.ActivityService](i)), nil
	})
	return inj
}
