package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery turns a handler panic into a logged 500 problem response. A panic
// with http.ErrAbortHandler is re-raised so the server aborts the response as
// net/http intends.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				correlationID := GetCorrelationID(r.Context())

				logger.Error("HTTP request panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("correlation_id", correlationID),
					slog.Any("panic", rec),
					slog.String("stack_trace", string(debug.Stack())),
				)

				err := writeRFC7807Error(w, r, http.StatusInternalServerError,
					"An unexpected error occurred while processing the request", correlationID)
				if err != nil {
					logger.Error("Failed to encode error response",
						slog.String("error", err.Error()),
						slog.String("correlation_id", correlationID),
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
