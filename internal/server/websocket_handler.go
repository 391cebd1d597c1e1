package server

import (
	"net/http"
	"strings"

	"ripple-chat/internal/presence"
	"ripple-chat/internal/services"
	"ripple-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler authenticates and upgrades live connections.
type WebSocketHandler struct {
	registry    *presence.Registry
	router      *services.DeliveryRouter
	authService *services.AuthService
	logger      *logger.Logger
}

func NewWebSocketHandler(registry *presence.Registry, router *services.DeliveryRouter, authService *services.AuthService, l *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry:    registry,
		router:      router,
		authService: authService,
		logger:      l,
	}
}

// Handle upgrades HTTP to WebSocket
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.authService.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("websocket upgrade failed for user %s: %v", userID, err)
		}
		return
	}

	client := NewClient(conn, userID, h.registry, h.router, h.logger)
	go client.Run()
}

func (h *WebSocketHandler) extractToken(c *gin.Context) string {
	token := c.Query("token")
	if token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return ""
}
