package handlers

import (
	"net/http"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// respondError maps error kinds to HTTP statuses. UI behaviour branches
// on status (toast text, retry), so kinds are never collapsed.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindBadRequest:
		status = http.StatusBadRequest
	case apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindExpired:
		status = http.StatusGone
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindInvalidTransition:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
