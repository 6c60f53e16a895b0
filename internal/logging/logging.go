package logging

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/auth"
)

// New builds the service logger. Unknown levels fall back to info.
func New(level, service string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, service)
}

func NewWithWriter(w io.Writer, level, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	SetLevel(level)
	return zerolog.New(w).
		With().Timestamp().Str("service", service).
		Logger()
}

// SetLevel changes the level of every logger at runtime.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Middleware logs one line per request. It must run after middleware.RequestID
// and the identity middleware to pick up their values.
func Middleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			ev := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			userID := ""
			if id, ok := auth.FromContext(r.Context()); ok {
				userID = id.UserID
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("user_id", userID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
