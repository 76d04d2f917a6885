package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/quill/internal/api/apierr"
	"github.com/mcoot/quill/internal/metrics"
	"github.com/mcoot/quill/internal/middleware"
)

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Metrics creates request metrics middleware for the API
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return middleware.Metrics(recorder)
}

// RateLimit rejects over-limit clients with a JSON 429
func RateLimit(limiter *middleware.RateLimiter) func(http.Handler) http.Handler {
	return limiter.Middleware(func(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
		apierr.WriteError(w, apierr.NewRateLimitedError())
	})
}
