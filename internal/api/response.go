package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kbforge/curatex/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Duplicate-content collisions serialize their full descriptor so clients can
// show what the submission collided with; absorption rejections carry the
// reason a near-duplicate was declined.
func HandleError(w http.ResponseWriter, err error) {
	var dup *domain.DuplicateContentError
	if errors.As(err, &dup) {
		JSON(w, http.StatusConflict, dup)
		return
	}

	var rejected *domain.AbsorptionRejectedError
	if errors.As(err, &rejected) {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       rejected.Error(),
			"reason":      rejected.Reason,
			"uniqueLines": rejected.UniqueLines,
			"totalLines":  rejected.TotalLines,
			"ratio":       rejected.Ratio,
		})
		return
	}

	Error(w, DomainErrorToHTTP(err), err.Error())
}
