// Package middleware provides HTTP middleware for the form server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// StructuredLogger returns a chi-compatible middleware that logs each
// request as one structured record, tagged with the request id assigned by
// middleware.RequestID.
func StructuredLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			attrs := []any{
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}

			switch {
			case ww.Status() >= 500:
				log.Error("HTTP request completed with server error", attrs...)
			case ww.Status() >= 400:
				log.Warn("HTTP request completed with client error", attrs...)
			default:
				log.Info("HTTP request completed", attrs...)
			}
		})
	}
}
