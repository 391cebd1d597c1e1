package handler

import (
	"net/http"

	"ripple-chat/internal/services"
	"ripple-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresenceIndex is the read-only slice of the registry the user surface
// needs.
type PresenceIndex interface {
	OnlineUsers() []uuid.UUID
}

type UserHandler struct {
	service  *services.UserService
	presence PresenceIndex
}

func NewUserHandler(service *services.UserService, presence PresenceIndex) *UserHandler {
	return &UserHandler{service: service, presence: presence}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	u, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewUserDTO(u)))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewUserDTO(u)))
}

func (h *UserHandler) List(c *gin.Context) {
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}
	offset, err := parseInt(c.Query("offset"))
	if err != nil {
		badRequest(c, "invalid offset")
		return
	}

	users, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"users": httpdto.NewUserDTOs(users)}))
}

// Online lists users currently holding at least one live connection.
func (h *UserHandler) Online(c *gin.Context) {
	ids := h.presence.OnlineUsers()
	online := make([]string, len(ids))
	for i, id := range ids {
		online[i] = id.String()
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"online": online}))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Bio:         req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewUserDTO(u)))
}

func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req httpdto.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	if err := h.service.RegisterPushToken(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
