package response

import (
	"errors"
	"net/http"

	"dario/internal/logger"

	"github.com/gin-gonic/gin"
)

// Application error codes
const (
	CodeValidation   = 40001
	CodeUnauthorized = 40101
	CodeNotFound     = 40401
	CodeRateLimited  = 42901
	CodeInternal     = 50001
	CodeUnavailable  = 50301
)

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidation(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func NewRateLimited(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusTooManyRequests, Code: CodeRateLimited, Message: msg}
}

func NewUnavailable(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Code: CodeUnavailable, Message: msg}
}

func NewInternal() *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error"}
}

// IsValidation reports whether err carries a validation failure.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}

// IsNotFound reports whether err carries a not-found failure.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

// Error writes err as {"error": msg}. Errors that are not AppErrors are
// logged and reported as a generic 500 so internals never leak to clients.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		appErr = NewInternal()
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": appErr.Message, "code": appErr.Code})
}
