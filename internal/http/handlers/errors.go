package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stayhub/internal/domain"
	"stayhub/internal/http/middleware"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	reqID := middleware.GetRequestID(c)
	c.JSON(status, gin.H{
		"error":      message,
		"code":       code,
		"details":    details,
		"request_id": reqID,
	})
}

// RespondDomainError maps domain errors to HTTP responses for the
// authenticated API surface. Webhook paths never use this; they always
// answer 200.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsNotAuthorized(err):
		respondError(c, http.StatusForbidden, "not_authorized", err.Error(), nil)
	case domain.IsDuplicateEvent(err):
		respondError(c, http.StatusConflict, "duplicate", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsInsufficientFunds(err):
		respondError(c, http.StatusUnprocessableEntity, "insufficient_funds", err.Error(), nil)
	case domain.IsProvider(err):
		respondError(c, http.StatusBadGateway, "provider_error", "payment provider unavailable", nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
