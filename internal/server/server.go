package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ripple-chat/config"
	"ripple-chat/internal/handler"
	"ripple-chat/internal/middleware"
	"ripple-chat/internal/services"
	"ripple-chat/internal/transport/httpdto"
	"ripple-chat/pkg/database"
	"ripple-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Status       *handler.StatusHandler
	Notification *handler.NotificationHandler
	Upload       *handler.UploadHandler
	WebSocket    *WebSocketHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/ws", handlers.WebSocket.Handle)

	auth := s.engine.Group("/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	authed := middleware.AuthMiddleware(authService)

	users := s.engine.Group("/v1/users", authed)
	{
		users.GET("/me", handlers.User.Me)
		users.PATCH("/me", handlers.User.UpdateProfile)
		users.POST("/me/push-tokens", handlers.User.RegisterPushToken)
		users.GET("", handlers.User.List)
		users.GET("/online", handlers.User.Online)
		users.GET("/:id", handlers.User.GetByID)
	}

	conversations := s.engine.Group("/v1/conversations", authed)
	{
		conversations.POST("/direct", handlers.Conversation.CreateDirect)
		conversations.POST("/group", handlers.Conversation.CreateGroup)
		conversations.GET("", handlers.Conversation.List)
		conversations.GET("/:id", handlers.Conversation.Get)
		conversations.GET("/:id/unread", handlers.Conversation.Unread)
		conversations.GET("/:id/typing", handlers.Conversation.Typing)
	}

	messages := s.engine.Group("/v1/messages", authed)
	{
		messages.POST("", handlers.Message.Send)
		messages.GET("", handlers.Message.List)
		messages.GET("/search", handlers.Message.Search)
		messages.PATCH("/:id", handlers.Message.Edit)
		messages.DELETE("/:id", handlers.Message.Delete)
		messages.POST("/:id/read", handlers.Message.MarkRead)
		messages.GET("/:id/reactions", handlers.Message.Reactions)
		messages.PUT("/:id/reaction", handlers.Message.React)
		messages.DELETE("/:id/reaction", handlers.Message.ClearReaction)
	}

	statuses := s.engine.Group("/v1/statuses", authed)
	{
		statuses.POST("", handlers.Status.Create)
		statuses.GET("", handlers.Status.ListActive)
		statuses.GET("/:id", handlers.Status.Get)
		statuses.DELETE("/:id", handlers.Status.Delete)
		statuses.POST("/:id/view", handlers.Status.View)
		statuses.PUT("/:id/reaction", handlers.Status.React)
		statuses.DELETE("/:id/reaction", handlers.Status.ClearReaction)
		statuses.POST("/:id/comments", handlers.Status.Comment)
	}

	notifications := s.engine.Group("/v1/notifications", authed)
	{
		notifications.GET("", handlers.Notification.List)
		notifications.GET("/unread-count", handlers.Notification.UnreadCount)
		notifications.POST("/:id/read", handlers.Notification.MarkRead)
		notifications.POST("/read-all", handlers.Notification.MarkAllRead)
	}

	uploads := s.engine.Group("/v1/uploads", authed)
	{
		uploads.POST("/presign", handlers.Upload.Presign)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
