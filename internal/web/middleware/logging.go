package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/quill/internal/metrics"
	"github.com/mcoot/quill/internal/middleware"
)

// Logging creates logging middleware for the web interface
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Metrics records page request durations
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return middleware.Metrics(recorder)
}
