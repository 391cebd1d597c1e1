package main

import (
	"context"
	"log"
	"time"

	"ripple-chat/config"
	"ripple-chat/internal/domain/conversation"
	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/domain/user"
	"ripple-chat/internal/handler"
	"ripple-chat/internal/presence"
	redisx "ripple-chat/internal/redis"
	"ripple-chat/internal/repository"
	"ripple-chat/internal/server"
	"ripple-chat/internal/services"
	"ripple-chat/internal/storage"
	"ripple-chat/pkg/database"
	"ripple-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.DB.AutoMigrate(
		&user.User{},
		&user.PushToken{},
		&conversation.Conversation{},
		&conversation.Participant{},
		&message.Message{},
		&message.Reaction{},
		&status.Post{},
		&status.Viewer{},
		&status.Reaction{},
		&status.Comment{},
		&notification.Notification{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	redisClient := redisx.NewClient(redisx.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo := repository.NewUserRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB)
	msgRepo := repository.NewMessageRepository(database.DB)
	statusRepo := repository.NewStatusRepository(database.DB)
	notifRepo := repository.NewNotificationRepository(database.DB)

	sink := services.NewPresenceSink(userRepo, nil, l)
	registry := presence.NewRegistry(sink)
	sink.SetBroadcaster(registry.Broadcast)

	bridge := redisx.NewBridge(redisClient, registry, l)
	sink.SetBridge(bridge)
	go bridge.Run(ctx)

	typing := redisx.NewTypingTracker(redisClient)

	var media services.MediaStore
	var mediaClient *storage.Client
	if cfg.S3Bucket != "" {
		var err error
		mediaClient, err = storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to set up media storage: %v", err)
		}
		media = mediaClient
	}

	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryMin)
	userService := services.NewUserService(userRepo)
	convService := services.NewConversationService(convRepo)
	msgService := services.NewMessageService(msgRepo)
	statusService := services.NewStatusService(statusRepo, media, l, cfg.StatusTTL)
	notifService := services.NewNotificationService(notifRepo, userRepo, registry, services.NewLogDispatcher(l), l, cfg.NotificationCap, cfg.NotificationMaxAge)
	router := services.NewDeliveryRouter(convService, msgService, statusService, notifService, registry, bridge, typing, l)

	go statusService.RunReaper(ctx, cfg.StatusSweepEvery)
	go runNotificationPurge(ctx, notifService, l)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService, registry),
		Conversation: handler.NewConversationHandler(router, convService, typing),
		Message:      handler.NewMessageHandler(router, msgService, convService),
		Status:       handler.NewStatusHandler(router, statusService),
		Notification: handler.NewNotificationHandler(notifService),
		Upload:       handler.NewUploadHandler(mediaClient),
		WebSocket:    server.NewWebSocketHandler(registry, router, authService, l),
	}, authService)

	if err := srv.Start(); err != nil {
		l.Errorf("server exited with error: %v", err)
	}

	cancel()
	registry.Shutdown()
}

func runNotificationPurge(ctx context.Context, svc *services.NotificationService, l *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dropped, err := svc.PurgeOld(ctx, now)
			if err != nil {
				l.Errorf("notification purge failed: %v", err)
				continue
			}
			if dropped > 0 {
				l.Infof("purged %d old notifications", dropped)
			}
		}
	}
}
