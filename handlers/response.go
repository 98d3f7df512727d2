package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"quizmaster/services"

	"github.com/gin-gonic/gin"
)

// Every endpoint answers with the same envelope: {success, type, data|error}.
// Validation failures are warnings, everything unexpected is a generic error.

func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"type":    "success",
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"type":    errType,
		"error":   message,
	})
}

func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "warning", validationErr.Message)
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "error", "Quiz not found")
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "error", "You do not own this quiz")
	default:
		slog.Error("request failed", "error", err)
		respondError(c, http.StatusInternalServerError, "error", "An unexpected error occurred")
	}
}
