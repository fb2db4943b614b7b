package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request's correlation ID in both directions.
const HeaderCorrelationID = "X-Correlation-ID"

// maxCorrelationIDLength bounds client-supplied IDs before they reach the logs.
const maxCorrelationIDLength = 64

type correlationIDKey struct{}

// CorrelationID tags each request with an ID, echoed in the response header and
// available to handlers through GetCorrelationID. A well-formed ID sent by the
// dashboard is reused so that its reload and view calls can be traced; anything
// else is replaced by a fresh UUID.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get(HeaderCorrelationID)
			if !validCorrelationID(correlationID) {
				correlationID = newCorrelationID()
			}

			w.Header().Set(HeaderCorrelationID, correlationID)

			ctx := context.WithValue(r.Context(), correlationIDKey{}, correlationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCorrelationID extracts the correlation ID from ctx, "unknown" when absent.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return correlationID
	}

	return "unknown"
}

// validCorrelationID accepts short IDs made of letters, digits, '-', '_' and '.'.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}

	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}

	return true
}

func newCorrelationID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "t" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	return id.String()
}
