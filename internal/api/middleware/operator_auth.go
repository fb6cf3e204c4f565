package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/trackmeet/engine/internal/operator"
)

// OperatorKeyHeader is the header carrying an operator key's plaintext
// credential.
const OperatorKeyHeader = "X-Operator-Key"

// RequireOperatorPermission wraps a handler so it only runs once the
// presented operator key authenticates and carries perm. It is applied
// per-route (force-approve, generate-meet, assign-bibs) rather than
// globally, since most of this surface has no operator-key requirement.
func RequireOperatorPermission(svc *operator.Service, perm operator.Permission, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			correlationID := GetCorrelationID(r.Context())

			key := r.Header.Get(OperatorKeyHeader)
			if key == "" {
				writeAuthProblem(w, http.StatusUnauthorized, "operator key header is required", correlationID, r.URL.Path)

				return
			}

			opKey, err := svc.Authorize(r.Context(), key, perm)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, operator.ErrForbidden) {
					status = http.StatusForbidden
				}

				logger.Warn("operator key authorization failed",
					slog.String("correlation_id", correlationID),
					slog.String("error", err.Error()),
				)

				writeAuthProblem(w, status, "operator key rejected", correlationID, r.URL.Path)

				return
			}

			ctx := context.WithValue(r.Context(), operatorKeyCtxKey{}, opKey)
			next(w, r.WithContext(ctx))
		}
	}
}

type operatorKeyCtxKey struct{}

// GetOperatorKey extracts the authorized operator key from the request
// context, set by RequireOperatorPermission. Returns nil if the route was
// not gated by an operator key.
func GetOperatorKey(ctx context.Context) *operator.Key {
	key, _ := ctx.Value(operatorKeyCtxKey{}).(*operator.Key)

	return key
}

// writeAuthProblem writes an RFC 7807 problem response without depending
// on the api package (avoiding an import cycle), mirroring Recovery's
// inline problem-detail struct.
func writeAuthProblem(w http.ResponseWriter, status int, detail, correlationID, path string) {
	problem := struct {
		Type          string `json:"type"`
		Title         string `json:"title"`
		Status        int    `json:"status"`
		Detail        string `json:"detail"`
		Instance      string `json:"instance"`
		CorrelationID string `json:"correlationId"`
	}{
		Type:          fmt.Sprintf("https://trackmeet.engine/problems/%d", status),
		Title:         http.StatusText(status),
		Status:        status,
		Detail:        detail,
		Instance:      path,
		CorrelationID: correlationID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}
