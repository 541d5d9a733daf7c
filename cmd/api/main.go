package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"sitechat/internal/adapter/api"
	"sitechat/internal/adapter/api/handler"
	apimiddleware "sitechat/internal/adapter/api/middleware"
	"sitechat/internal/adapter/api/router"
	"sitechat/internal/adapter/repository"
	domainrepo "sitechat/internal/domain/repository"
	"sitechat/internal/domain/service"
	"sitechat/internal/infrastructure/firebase"
	"sitechat/internal/infrastructure/ratelimit"
	"sitechat/internal/infrastructure/storage"
	"sitechat/internal/infrastructure/websocket"
	"sitechat/internal/usecase"
	"sitechat/pkg/config"
	"sitechat/pkg/logger"
)

// backend is everything the use cases need from the outside world.
type backend struct {
	messageRepo      domainrepo.MessageRepository
	userRepo         domainrepo.UserRepository
	presenceRepo     domainrepo.PresenceRepository
	notificationRepo domainrepo.NotificationRepository
	blobService      service.BlobService
	verifier         firebase.TokenVerifier
	closers          []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Shutdown Warning: %v", err)
		}
	}
}

func credentials(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)), nil
	}

	if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err != nil {
		return nil, err
	}
	logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
	return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath), nil
}

func setupFirebase(ctx context.Context, cfg *config.Config, b *backend) error {
	opt, err := credentials(cfg)
	if err != nil {
		return err
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return err
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return err
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, firestoreClient.Close)

	b.verifier = firebase.NewFirebaseAuthClient(authClient)
	b.messageRepo = repository.NewFirestoreMessageRepository(firestoreClient)
	b.userRepo = repository.NewFirestoreUserRepository(firestoreClient)
	b.presenceRepo = repository.NewFirestorePresenceRepository(firestoreClient)
	b.notificationRepo = repository.NewFirestoreNotificationRepository(firestoreClient)

	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, storageClient.Close)
		b.blobService = storageClient
	}
	return nil
}

func setupMemory(ctx context.Context, cfg *config.Config, b *backend) error {
	users := repository.NewMemoryUserRepository()
	if cfg.SeedUsersPath != "" {
		loaded, err := repository.LoadMemoryUsers(cfg.SeedUsersPath)
		if err != nil {
			return err
		}
		users = loaded
	}

	logger.Warn("Using in-memory store; tokens are accepted as dev:<uid>")
	b.verifier = firebase.DevTokenVerifier{}
	b.messageRepo = repository.NewMemoryMessageRepository()
	b.userRepo = users
	b.presenceRepo = repository.NewMemoryPresenceRepository()
	b.notificationRepo = repository.NewMemoryNotificationRepository()

	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, storageClient.Close)
		b.blobService = storageClient
	}
	return nil
}

func setupPresence(ctx context.Context, cfg *config.Config, b *backend) error {
	if cfg.PresenceDriver != "redis" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return err
	}
	b.closers = append(b.closers, rdb.Close)
	b.presenceRepo = repository.NewRedisPresenceRepository(rdb, cfg.PresenceTTL)
	logger.Info("Presence served from Redis at %s", cfg.RedisAddr)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &backend{}
	defer b.Close()

	switch cfg.StoreDriver {
	case "memory":
		err = setupMemory(ctx, cfg, b)
	default:
		err = setupFirebase(ctx, cfg, b)
	}
	if err != nil {
		logger.Fatal("Failed to initialize %s store: %v", cfg.StoreDriver, err)
	}
	if err := setupPresence(ctx, cfg, b); err != nil {
		logger.Fatal("Failed to initialize presence: %v", err)
	}
	if b.blobService == nil {
		logger.Warn("STORAGE_BUCKET is not set; attachments are disabled")
	}

	messageUseCase := usecase.NewMessageUseCase(b.messageRepo, b.userRepo, b.notificationRepo, b.blobService, usecase.MessageOptions{
		SendTimeout:       cfg.SendTimeout,
		PendingTimeout:    cfg.PendingTimeout,
		SendRatePerMinute: cfg.SendRatePerMinute,
		SendBurst:         cfg.SendBurst,
	})
	messageUseCase.StartCleanupRoutine(ctx)

	threadUseCase := usecase.NewThreadUseCase(b.messageRepo, b.userRepo)
	presenceTracker := usecase.NewPresenceTracker(b.presenceRepo, usecase.PresenceOptions{
		Interval:      cfg.PresenceInterval,
		LookupTimeout: cfg.PresenceLookupTimeout,
	})

	wsManager := websocket.NewManager(messageUseCase, threadUseCase, presenceTracker, websocket.ManagerOptions{})
	wsManager.Start(ctx)

	handler.Setup(messageUseCase, threadUseCase, presenceTracker, wsManager, cfg.StoreDriver, cfg.AllowedOrigins)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(b.verifier, b.userRepo)

	httpLimiter := ratelimit.NewRateLimiter(cfg.HTTPRatePerMinute, cfg.HTTPRatePerMinute/2)
	httpLimiter.StartCleanupRoutine(ctx, 10*time.Minute)

	router.Setup(e, authMiddleware, httpLimiter)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown Error: %v", err)
	}
}
