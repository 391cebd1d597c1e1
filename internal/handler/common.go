package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ripple-chat/internal/transport/httpdto"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors onto the wire envelope and the right
// HTTP status.
func respondError(c *gin.Context, err error) {
	c.JSON(statusOf(err), httpdto.NewErrorResponse(err.Error(), ripple_errors.CodeOf(err)))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ripple_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ripple_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ripple_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ripple_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ripple_errors.ErrConflict), errors.Is(err, ripple_errors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ripple_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ripple_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(msg, "INVALID_REQUEST"))
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
