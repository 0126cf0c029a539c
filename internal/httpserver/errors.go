package httpserver

import (
	"errors"
	"net/http"
	"time"

	"customer-service/internal/domain"
	"customer-service/internal/observability"
	"customer-service/internal/picture"
	authsvc "customer-service/internal/service/auth"
	"customer-service/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type standardError struct {
	Timestamp int64                 `json:"timestamp"`
	Status    int                   `json:"status"`
	Error     string                `json:"error"`
	Message   string                `json:"message"`
	Path      string                `json:"path"`
	Errors    []domain.FieldMessage `json:"errors,omitempty"`
}

func abortWith(c *gin.Context, status int, title, message string, fields []domain.FieldMessage) {
	c.AbortWithStatusJSON(status, standardError{
		Timestamp: time.Now().UnixMilli(),
		Status:    status,
		Error:     title,
		Message:   message,
		Path:      c.Request.URL.Path,
		Errors:    fields,
	})
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation *domain.ValidationError
		authErr    *domain.AuthorizationError
		notFound   *domain.ObjectNotFoundError
		integrity  *domain.DataIntegrityError
	)
	switch {
	case errors.As(err, &validation):
		abortWith(c, http.StatusUnprocessableEntity, "Validation error", "validation failed", validation.Fields)
	case errors.As(err, &authErr):
		abortWith(c, http.StatusForbidden, "Access denied", authErr.Error(), nil)
	case errors.As(err, &notFound):
		abortWith(c, http.StatusNotFound, "Not found", notFound.Error(), nil)
	case errors.As(err, &integrity):
		abortWith(c, http.StatusBadRequest, "Data integrity", integrity.Error(), nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		abortWith(c, http.StatusUnauthorized, "Unauthorized", err.Error(), nil)
	case errors.Is(err, picture.ErrUnsupportedFormat):
		abortWith(c, http.StatusBadRequest, "File error", picture.ErrUnsupportedFormat.Error(), nil)
	case errors.Is(err, picture.ErrImageTooLarge):
		abortWith(c, http.StatusRequestEntityTooLarge, "File error", picture.ErrImageTooLarge.Error(), nil)
	case errors.Is(err, storage.ErrUnavailable):
		logger.Warn("storage unavailable", zap.String("path", c.Request.URL.Path), zap.Error(err))
		abortWith(c, http.StatusServiceUnavailable, "Storage unavailable", "file storage is temporarily unavailable", nil)
	default:
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(observability.RequestIDKey)),
			zap.Error(err),
		)
		abortWith(c, http.StatusInternalServerError, "Internal error", "internal server error", nil)
	}
}

// writeBindError reports payload problems: 422 with per-field messages for
// failed constraints, 400 for bodies that cannot be decoded at all.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		abortWith(c, http.StatusBadRequest, "Bad request", "invalid request payload", nil)
		return
	}
	fields := make([]domain.FieldMessage, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldMessage{Field: fe.Field(), Message: constraintMessage(fe)})
	}
	abortWith(c, http.StatusUnprocessableEntity, "Validation error", "validation failed", fields)
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field"
	case "email":
		return "invalid email"
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	}
	return "invalid value"
}
