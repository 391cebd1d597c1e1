package handler

import (
	"fmt"
	"net/http"

	"ripple-chat/internal/services"
	"ripple-chat/internal/storage"
	"ripple-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	store *storage.Client
}

func NewUploadHandler(store *storage.Client) *UploadHandler {
	return &UploadHandler{store: store}
}

// Presign hands the client a direct-to-bucket upload URL so media bytes
// never pass through the API.
func (h *UploadHandler) Presign(c *gin.Context) {
	if _, ok := services.UserIDFromContext(c.Request.Context()); !ok {
		unauthorized(c)
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("media storage not configured", "UPSTREAM_UNAVAILABLE"))
		return
	}

	var req httpdto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.ContentType == "" {
		badRequest(c, "contentType is required")
		return
	}

	key := fmt.Sprintf("media/%s", uuid.New().String())
	uploadURL, _, err := h.store.PresignPut(c.Request.Context(), key, req.ContentType, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignUploadResponse{
		UploadURL: uploadURL,
		FileURL:   h.store.FileURL(key),
	}))
}
