package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-learning-service/internal/domain"
)

// ErrCode identifies an API error independent of its message.
type ErrCode string

const (
	ErrValidation           ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload       ErrCode = "INVALID_PAYLOAD"
	ErrFileTooLarge         ErrCode = "FILE_TOO_LARGE"
	ErrNotFound             ErrCode = "NOT_FOUND"
	ErrGeneratorUnavailable ErrCode = "GENERATOR_NOT_CONFIGURED"
	ErrGenerationFailed     ErrCode = "GENERATION_FAILED"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrSessionInProgress    ErrCode = "SESSION_IN_PROGRESS"
	ErrSessionCompleted     ErrCode = "SESSION_COMPLETED"
	ErrInternal             ErrCode = "INTERNAL_ERROR"
)

// envelope is the standardized API response.
type envelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data})
}

func fail(c *gin.Context, status int, code ErrCode, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, envelope{Error: &errorBody{Code: code, Message: message, Fields: fields}})
}

// failErr maps service errors onto HTTP statuses.
func failErr(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var configErr *domain.ConfigurationError
	var generationErr *domain.GenerationError

	switch {
	case errors.As(err, &validationErr):
		fail(c, http.StatusBadRequest, ErrValidation, "invalid generation request", validationErr.Fields)
	case errors.As(err, &configErr):
		fail(c, http.StatusServiceUnavailable, ErrGeneratorUnavailable, configErr.Error(), nil)
	case errors.As(err, &generationErr):
		fail(c, http.StatusBadGateway, ErrGenerationFailed, generationErr.Error(), nil)
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrConfirmationRequired):
		fail(c, http.StatusConflict, ErrConfirmationRequired, err.Error(), nil)
	case errors.Is(err, domain.ErrSessionInProgress):
		fail(c, http.StatusConflict, ErrSessionInProgress, err.Error(), nil)
	case errors.Is(err, domain.ErrSessionCompleted):
		fail(c, http.StatusConflict, ErrSessionCompleted, err.Error(), nil)
	default:
		fail(c, http.StatusInternalServerError, ErrInternal, "internal error", nil)
	}
}
