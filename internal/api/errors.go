// Package api provides the HTTP API server for the meet operator service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/trackmeet/engine/internal/api/middleware"
	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/checkin"
	"github.com/trackmeet/engine/internal/entries"
	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/operator"
	"github.com/trackmeet/engine/internal/payments"
	"github.com/trackmeet/engine/internal/roster"
)

// ProblemDetail represents an RFC 7807 Problem Details structure.
// See https://tools.ietf.org/html/rfc7807 for specification.
type ProblemDetail struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail,omitempty"`
	Instance      string `json:"instance,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// NewProblemDetail creates a new RFC 7807 Problem Detail.
func NewProblemDetail(status int, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   fmt.Sprintf("https://trackmeet.engine/problems/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// WithInstance adds an instance URI to the problem detail.
func (p *ProblemDetail) WithInstance(instance string) *ProblemDetail {
	p.Instance = instance

	return p
}

// WithCorrelationID adds a correlation ID to the problem detail.
func (p *ProblemDetail) WithCorrelationID(correlationID string) *ProblemDetail {
	p.CorrelationID = correlationID

	return p
}

// WriteErrorResponse writes an RFC 7807 compliant error response.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, problem *ProblemDetail) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if problem.CorrelationID == "" {
		problem.CorrelationID = correlationID
	}

	if problem.Instance == "" {
		problem.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		logger.Error("Failed to encode error response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.Any("encode_error", err),
			slog.Int("status", problem.Status),
		)

		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Common error constructors for frequently used problem types.

// InternalServerError creates a 500 Internal Server Error problem.
func InternalServerError(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusInternalServerError, "Internal Server Error", detail)
}

// BadRequest creates a 400 Bad Request problem.
func BadRequest(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusBadRequest, "Bad Request", detail)
}

// NotFound creates a 404 Not Found problem.
func NotFound(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusNotFound, "Not Found", detail)
}

// MethodNotAllowed creates a 405 Method Not Allowed problem.
func MethodNotAllowed(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusMethodNotAllowed, "Method Not Allowed", detail)
}

// Conflict creates a 409 Conflict problem.
func Conflict(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusConflict, "Conflict", detail)
}

// UnprocessableEntity creates a 422 Unprocessable Entity problem.
func UnprocessableEntity(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

// Forbidden creates a 403 Forbidden problem.
func Forbidden(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusForbidden, "Forbidden", detail)
}

// Unauthorized creates a 401 Unauthorized problem.
func Unauthorized(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusUnauthorized, "Unauthorized", detail)
}

// PayloadTooLarge creates a 413 Payload Too Large problem.
func PayloadTooLarge(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusRequestEntityTooLarge, "Payload Too Large", detail)
}

// UnsupportedMediaType creates a 415 Unsupported Media Type problem.
func UnsupportedMediaType(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusUnsupportedMediaType, "Unsupported Media Type", detail)
}

// errorToProblem maps a domain sentinel error to its RFC 7807 status:
// Validation/StandardExceeded→422, Duplicate→409,
// Capacity→409, StateConflict→409, NoFallback→422, FinalizedExists→409,
// LaneConflict→409, Forbidden→403, anything uncategorized→500.
func errorToProblem(err error) *ProblemDetail {
	switch {
	case errors.Is(err, entries.ErrValidation),
		errors.Is(err, entries.ErrStandardExceeded),
		errors.Is(err, payments.ErrValidation),
		errors.Is(err, heats.ErrValidation),
		errors.Is(err, heats.ErrNoFallback),
		errors.Is(err, roster.ErrValidation),
		errors.Is(err, catalog.ErrInvalidOwner),
		errors.Is(err, operator.ErrValidation):
		return UnprocessableEntity(err.Error())

	case errors.Is(err, entries.ErrDuplicate),
		errors.Is(err, entries.ErrCapacity),
		errors.Is(err, payments.ErrStateConflict),
		errors.Is(err, entries.ErrStateConflict),
		errors.Is(err, heats.ErrFinalizedExists),
		errors.Is(err, heats.ErrLaneConflict),
		errors.Is(err, checkin.ErrStateConflict),
		errors.Is(err, checkin.ErrTerminalStateImmutable),
		errors.Is(err, payments.ErrNoPendingEntries):
		return Conflict(err.Error())

	case errors.Is(err, payments.ErrForbidden),
		errors.Is(err, operator.ErrForbidden):
		return Forbidden(err.Error())

	case errors.Is(err, operator.ErrKeyNotFound),
		errors.Is(err, operator.ErrKeyInactive):
		return Unauthorized(err.Error())

	default:
		return InternalServerError("an internal error occurred")
	}
}
