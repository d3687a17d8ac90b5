package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/drafts"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

type errorPayload struct {
	Type    string                   `json:"type"`
	Message string                   `json:"message"`
	Errors  []domain.ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware translates errors recorded on the context into a
// single JSON error response. Validation failures keep their reason list;
// remote failures forward the upstream status and message.
func ErrorHandlingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: errorPayload{
				Type:    "validation",
				Message: "voucher cannot be submitted",
				Errors:  verrs.Errors,
			}})
			return
		}

		var remoteErr *remote.Error
		if errors.As(err, &remoteErr) {
			status := remoteErr.StatusCode
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			c.JSON(status, errorResponse{Error: errorPayload{
				Type:    "remote",
				Message: remote.MessageOrFallback(remoteErr),
			}})
			return
		}

		switch {
		case errors.Is(err, drafts.ErrNotFound):
			respond(c, http.StatusNotFound, "not_found", err)
		case errors.Is(err, domain.ErrVoucherPosted),
			errors.Is(err, domain.ErrVoucherNotPosted),
			errors.Is(err, domain.ErrVoucherNotPersisted):
			respond(c, http.StatusConflict, "conflict", err)
		case errors.Is(err, domain.ErrInvalidVoucherType),
			errors.Is(err, domain.ErrUnknownFieldPath),
			errors.Is(err, domain.ErrUnknownSide),
			errors.Is(err, domain.ErrLineIndexOutOfRange):
			respond(c, http.StatusBadRequest, "invalid_request", err)
		default:
			log.Error("unhandled request error", zap.Error(err))
			respond(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
		}
	}
}

func respond(c *gin.Context, status int, errType string, err error) {
	c.JSON(status, errorResponse{Error: errorPayload{Type: errType, Message: err.Error()}})
}
