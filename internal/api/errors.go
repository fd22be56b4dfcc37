package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api/shared"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, ranking.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrTaskCompleted):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, ranking.ErrInvalidRange),
		errors.Is(err, ranking.ErrInvalidConfig),
		errors.Is(err, ranking.ErrDuplicateID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, ranking.ErrNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrTaskExists):
		return "Task already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"
	case errors.Is(err, service.ErrTaskCompleted):
		return "Task is already complete"

	case errors.Is(err, ranking.ErrInvalidRange):
		return "Rank out of range"
	case errors.Is(err, ranking.ErrInvalidConfig):
		return "Invalid ranking configuration"
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return domainValidationMessage(err)

	default:
		return "An unexpected error occurred"
	}
}

// domainValidationMessage names the task rule that failed. The domain
// sentinels carry no sensitive data.
func domainValidationMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrTaskIDEmpty,
		domain.ErrTaskTitleEmpty,
		domain.ErrInvalidPriority,
		domain.ErrInvalidStatus,
		domain.ErrInvalidEffort,
		domain.ErrSelfDependency,
		domain.ErrInvalidOverride,
	} {
		if errors.Is(err, sentinel) {
			return "Validation error: " + sentinel.Error()
		}
	}
	return "Validation error"
}

// SanitizeValidationError turns validator errors into a short message naming
// the offending fields.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), getValidationTagMessage(fe.Tag())))
	}
	return "Invalid " + strings.Join(parts, ", ")
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status code and safe message for err. When
// defaultMsg is set it replaces the generic message of server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
