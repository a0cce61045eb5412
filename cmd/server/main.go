package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/worksreg/internal/config"
	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/sequence"
	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/rpggio/worksreg/internal/mcp"
	"github.com/rpggio/worksreg/internal/realtime"
	"github.com/rpggio/worksreg/internal/sqlite"
	"github.com/rpggio/worksreg/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		capped, err := openCappedLog(cfg.Log.Path, maxLogBytes, keepLogBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer capped.Close()
			logWriter = capped
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureParentDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	projectRepo := sqlite.NewProjectRepository(db)
	counterRepo := sqlite.NewCounterRepository(db)
	unitRepo := sqlite.NewUnitRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	keyRepo := sqlite.NewAPIKeyRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)

	var broadcaster notification.Broadcaster
	if cfg.Redis.Addr != "" {
		rb, err := newBroadcaster(cfg.Redis)
		if err != nil {
			// Real-time push is optional; notifications are still persisted.
			logger.Warn("redis unavailable, real-time push disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rb.Close()
			broadcaster = rb
		}
	}

	userSvc := user.NewService(userRepo, logger)
	serialSvc := sequence.NewService(counterRepo, logger)
	codeSvc := code.NewService(counterRepo, unitRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, broadcaster, logger)
	projectSvc := project.NewService(project.Deps{
		Records:  projectRepo,
		Rejected: projectRepo,
		Serials:  serialSvc,
		Codes:    codeSvc,
		Notifier: notificationSvc,
		Users:    userSvc,
		Units:    unitRepo,
		Logger:   logger,
	})

	defaultActor := cfg.Auth.DefaultActor
	if defaultActor == "" && cfg.Transport.Mode == "stdio" {
		defaultActor = "admin"
	}
	if defaultActor != "" {
		if err := bootstrapActor(context.Background(), userSvc, defaultActor); err != nil {
			logger.Error("failed to bootstrap default actor", "actor", defaultActor, "error", err)
			os.Exit(1)
		}
	}

	if cfg.Sweep.Enabled {
		sweeper := sweep.New(serialSvc, projectSvc, cfg.Sweep.Schedule, logger)
		if err := sweeper.Start(); err != nil {
			logger.Error("failed to start sweep", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Projects:      projectSvc,
			Codes:         codeSvc,
			Serials:       serialSvc,
			Notifications: notificationSvc,
		},
		Actors:        &actorResolver{keys: keyRepo, users: userSvc},
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultActor:  defaultActor,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, mcpServer, db, logger); err != nil {
		logger.Error("server stopped", "transport", cfg.Transport.Mode, "error", err)
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}

func newBroadcaster(cfg config.RedisConfig) (*realtime.RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rb := realtime.NewRedisBroadcaster(client, cfg.ChannelPrefix)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rb.Ping(ctx); err != nil {
		rb.Close()
		return nil, err
	}
	return rb, nil
}

// bootstrapActor makes sure the default actor exists, creating it as an
// administrator on first start.
func bootstrapActor(ctx context.Context, users *user.Service, ident string) error {
	_, err := users.Resolve(ctx, ident)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return err
	}
	_, err = users.Create(ctx, user.CreateRequest{Username: ident, Role: user.RoleAdmin})
	return err
}

// actorResolver maps API keys and identifiers to users.
type actorResolver struct {
	keys  *sqlite.APIKeyRepository
	users *user.Service
}

func (r *actorResolver) ResolveToken(ctx context.Context, token string) (*user.User, error) {
	userID, err := r.keys.UserIDForKey(ctx, token)
	if err != nil || userID == "" {
		return nil, fmt.Errorf("unauthorized: invalid token")
	}
	return r.users.Get(ctx, userID)
}

func (r *actorResolver) Resolve(ctx context.Context, ident string) (*user.User, error) {
	return r.users.Resolve(ctx, ident)
}
