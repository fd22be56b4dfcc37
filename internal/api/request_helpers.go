package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
)

// Bounds of the limit query parameter.
const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// getPathID extracts a task ID from the URL path parameters.
func getPathID(r *http.Request, paramName string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, paramName))
	if id == "" {
		return "", domain.NewValidationError(paramName, "is required", domain.ErrInvalidID)
	}
	return id, nil
}

// getLimit parses the optional limit query parameter. Missing means
// defaultListLimit; values above maxListLimit are capped.
func getLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, domain.NewValidationError("limit", "must be a positive integer", domain.ErrValidation)
	}
	return min(limit, maxListLimit), nil
}
