package handler

import (
	"net/http"

	"ripple-chat/internal/services"
	"ripple-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	router   *services.DeliveryRouter
	messages *services.MessageService
	convs    *services.ConversationService
}

func NewMessageHandler(router *services.DeliveryRouter, messages *services.MessageService, convs *services.ConversationService) *MessageHandler {
	return &MessageHandler{router: router, messages: messages, convs: convs}
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	conversationID, err := parseUUID(req.ConversationID)
	if err != nil {
		badRequest(c, "invalid conversationId")
		return
	}

	in := services.AppendInput{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        req.Content,
		Type:           req.Type,
		Metadata:       req.Metadata,
	}
	if req.ReplyToID != "" {
		replyTo, err := parseUUID(req.ReplyToID)
		if err != nil {
			badRequest(c, "invalid replyToId")
			return
		}
		in.ReplyToID = uuid.NullUUID{UUID: replyTo, Valid: true}
	}

	m, err := h.router.SendMessage(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewMessageDTO(m)))
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	conversationID, err := parseUUID(c.Query("conversationId"))
	if err != nil {
		badRequest(c, "invalid conversationId")
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}
	before, err := parseTime(c.Query("before"))
	if err != nil {
		badRequest(c, "invalid before")
		return
	}

	if _, err := h.convs.Get(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	msgs, err := h.messages.ListRecent(c.Request.Context(), conversationID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": httpdto.NewMessageDTOs(msgs)}))
}

func (h *MessageHandler) Search(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	conversationID, err := parseUUID(c.Query("conversationId"))
	if err != nil {
		badRequest(c, "invalid conversationId")
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}
	before, err := parseTime(c.Query("before"))
	if err != nil {
		badRequest(c, "invalid before")
		return
	}
	after, err := parseTime(c.Query("after"))
	if err != nil {
		badRequest(c, "invalid after")
		return
	}

	if _, err := h.convs.Get(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	msgs, err := h.messages.Search(c.Request.Context(), conversationID, c.Query("q"), services.SearchOptions{
		Limit:  limit,
		Before: before,
		After:  after,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": httpdto.NewMessageDTOs(msgs)}))
}

func (h *MessageHandler) Edit(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	m, err := h.router.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageDTO(m)))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	m, err := h.router.DeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageDTO(m)))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	m, err := h.router.MarkRead(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageDTO(m)))
}

func (h *MessageHandler) React(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	var req httpdto.ReactMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	if err := h.router.ReactMessage(c.Request.Context(), messageID, userID, req.Emoji); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) Reactions(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	m, err := h.messages.Get(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.convs.Get(c.Request.Context(), m.ConversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	reactions, err := h.messages.GetReactions(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"reactions": httpdto.NewReactionDTOs(reactions)}))
}

func (h *MessageHandler) ClearReaction(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}

	if err := h.router.ClearMessageReaction(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
