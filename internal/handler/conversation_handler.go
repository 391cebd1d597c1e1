package handler

import (
	"net/http"

	redisx "ripple-chat/internal/redis"
	"ripple-chat/internal/services"
	"ripple-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	router  *services.DeliveryRouter
	service *services.ConversationService
	typing  *redisx.TypingTracker
}

func NewConversationHandler(router *services.DeliveryRouter, service *services.ConversationService, typing *redisx.TypingTracker) *ConversationHandler {
	return &ConversationHandler{router: router, service: service, typing: typing}
}

func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	other, err := parseUUID(req.UserID)
	if err != nil {
		badRequest(c, "invalid userId")
		return
	}

	conv, err := h.router.CreateDirect(c.Request.Context(), userID, other)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationDTO(conv)))
}

func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	participants := make([]uuid.UUID, 0, len(req.Participants))
	for _, raw := range req.Participants {
		id, err := parseUUID(raw)
		if err != nil {
			badRequest(c, "invalid participant id")
			return
		}
		participants = append(participants, id)
	}

	conv, err := h.router.CreateGroup(c.Request.Context(), participants, req.Name, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewConversationDTO(conv)))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}

	conv, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationDTO(conv)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	convs, err := h.service.ListForUser(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"conversations": httpdto.NewConversationDTOs(convs)}))
}

func (h *ConversationHandler) Unread(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}

	n, err := h.service.GetUnread(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"unreadCount": n}))
}

// Typing reports who is typing right now, straight from the shared
// short-lived store.
func (h *ConversationHandler) Typing(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}

	if _, err := h.service.Get(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	typing, err := h.typing.Typing(c.Request.Context(), id.String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"typing": typing}))
}
