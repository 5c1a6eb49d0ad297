package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evlasenko/go-todo-app/internal/services"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"message": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// abortValidation emits the per-field error body for 400 responses:
// {"errors":[{"field":...,"message":...},...]}.
func abortValidation(c *gin.Context, ve *services.ValidationError) {
	fields := make([]fieldErrorResponse, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = fieldErrorResponse{
			Field:   f.Field,
			Message: f.Message,
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": fields})
}
