package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/quill/internal/dependencies/mocks"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/storage/memory"
)

// TestTokenSecret signs session tokens in test apps
const TestTokenSecret = "test-secret-that-is-long-enough-for-hs256"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// TestOption adjusts the auth configuration of a TestApp
type TestOption func(*auth.Config)

// WithConfirmation makes sign-up require email confirmation
func WithConfirmation() TestOption {
	return func(c *auth.Config) { c.RequireConfirmation = true }
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp(opts ...TestOption) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.TokenSecret = TestTokenSecret
	for _, opt := range opts {
		opt(&authCfg)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	app := newWithDependencies(store, mockClock, mockRandom, authCfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
