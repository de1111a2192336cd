package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/notify-engine/pkg/errors"
)

// ErrorResponse is the wire shape of an error surfaced by middleware.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler logs and renders errors attached to the gin context by
// handlers that return via c.Error instead of writing a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		status := http.StatusInternalServerError
		var appErr *apperrors.AppError
		if errors.As(lastErr.Err, &appErr) {
			switch appErr.Code {
			case apperrors.ErrNotFound:
				status = http.StatusNotFound
			case apperrors.ErrBadRequest:
				status = http.StatusBadRequest
			case apperrors.ErrConflict:
				status = http.StatusConflict
			}
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: lastErr.Error(),
			TraceID: requestID,
		})
	}
}
