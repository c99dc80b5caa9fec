package middleware

import (
	"net/http"
	"time"

	"github.com/nkiryanov/bookstore/internal/handlers/principal"
)

type accessLogger interface {
	Info(msg string, args ...any)
}

// Captures status and size the inner handlers wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// LoggerMiddleware writes access log line after request is served
// The line names the caller: user_id and role once token verified, anonymous otherwise
func LoggerMiddleware(l accessLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, trail := principal.WithTrail(r.Context())
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			args := []any{
				"method", r.Method,
				"uri", r.RequestURI,
				"remote_addr", r.RemoteAddr,
				"duration", time.Since(start),
				"status", rec.status,
				"size", rec.size,
			}
			if p, ok := trail.Principal(); ok {
				args = append(args, "user_id", p.UserID, "role", p.Role.String())
			} else {
				args = append(args, "anonymous", true)
			}

			l.Info("got HTTP request", args...)
		})
	}
}
