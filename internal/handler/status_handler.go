package handler

import (
	"net/http"

	"ripple-chat/internal/services"
	"ripple-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StatusHandler struct {
	router   *services.DeliveryRouter
	statuses *services.StatusService
}

func NewStatusHandler(router *services.DeliveryRouter, statuses *services.StatusService) *StatusHandler {
	return &StatusHandler{router: router, statuses: statuses}
}

func (h *StatusHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.CreateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	p, err := h.router.PostStatus(c.Request.Context(), services.PostInput{
		UserID:   userID,
		MediaURL: req.MediaURL,
		Caption:  req.Caption,
		Type:     req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewStatusPostDTO(p)))
}

func (h *StatusHandler) Get(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	p, err := h.statuses.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewStatusPostDTO(p)))
}

func (h *StatusHandler) ListActive(c *gin.Context) {
	grouped, err := h.statuses.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make(map[string][]httpdto.StatusPostDTO, len(grouped))
	for owner, posts := range grouped {
		out[owner.String()] = httpdto.NewStatusPostDTOs(posts)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"statuses": out}))
}

func (h *StatusHandler) View(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	if err := h.router.ViewStatus(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *StatusHandler) React(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	var req httpdto.ReactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	p, err := h.router.ReactStatus(c.Request.Context(), id, userID, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewStatusPostDTO(p)))
}

func (h *StatusHandler) ClearReaction(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	p, err := h.router.ClearStatusReaction(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewStatusPostDTO(p)))
}

func (h *StatusHandler) Comment(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	var req httpdto.CommentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	mentions := make([]uuid.UUID, 0, len(req.Mentions))
	for _, raw := range req.Mentions {
		m, err := parseUUID(raw)
		if err != nil {
			badRequest(c, "invalid mention id")
			return
		}
		mentions = append(mentions, m)
	}

	comment, err := h.router.CommentStatus(c.Request.Context(), id, userID, req.Text, mentions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewStatusCommentDTO(comment)))
}

func (h *StatusHandler) Delete(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid status id")
		return
	}

	if err := h.router.DeleteStatus(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
