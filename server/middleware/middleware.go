package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"slackbridge/errors"
)

// RequestTimer measures request processing time
func RequestTimer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		w.Header().Set("X-Response-Time", duration.String())
	})
}

// Recovery recovers from panics, logs the error, and returns a structured
// 500 response.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.ByteString("stack", debug.Stack()),
						zap.String("request_id", GetRequestID(r.Context())),
					)

					errors.WriteError(w, errors.NewInternalError(GetRequestID(r.Context()), nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
