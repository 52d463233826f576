// Package apierror maps service errors onto HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrTurnInProgress),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrAssessmentIncomplete):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the public text for err. Wrapped detail is never shown to
// clients; Write records it for the request log instead.
func Message(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid request"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrTurnInProgress):
		return "a message for this session is still being processed"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "that action is not available at this point in the conversation"
	case errors.Is(err, domain.ErrAssessmentIncomplete):
		return "the assessment is not complete yet"
	case errors.Is(err, domain.ErrNotConfigured):
		return "service not configured"
	case errors.Is(err, domain.ErrUpstream):
		return "the assistant is temporarily unavailable, please try again"
	default:
		return "internal server error"
	}
}

// Body returns the JSON body for err. Upstream failures carry the apology
// and a retry hint so clients can resubmit the same message.
func Body(err error) gin.H {
	if errors.Is(err, domain.ErrUpstream) {
		return gin.H{"error": Message(err), "reply": prompt.Apology, "retry": true}
	}
	return gin.H{"error": Message(err)}
}

// Write aborts the request with the response for err. The full error is
// attached to the context for the request logger.
func Write(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(Status(err), Body(err))
}
