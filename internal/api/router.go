package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/quill/internal/api/handler"
	"github.com/mcoot/quill/internal/api/middleware"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/events"
	"github.com/mcoot/quill/internal/metrics"
	httpmw "github.com/mcoot/quill/internal/middleware"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	PostService *posts.Service
	HubManager  *events.HubManager
	// Metrics records request metrics (optional)
	Metrics metrics.Recorder
	// Gatherer serves /metrics when set
	Gatherer prometheus.Gatherer
	// SignInLimiter throttles sign-in and sign-up per client (optional)
	SignInLimiter *httpmw.RateLimiter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	profileHandler := handler.NewProfileHandler(cfg.AuthService)
	postHandler := handler.NewPostHandler(cfg.PostService)
	eventsHandler := handler.NewEventsHandler(cfg.HubManager)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Metrics(recorder))

	// Auth routes that open sessions are throttled per client
	credentials := api.PathPrefix("/auth").Subrouter()
	if cfg.SignInLimiter != nil {
		credentials.Use(middleware.RateLimit(cfg.SignInLimiter))
	}
	credentials.HandleFunc("/signup", authHandler.SignUp).Methods(http.MethodPost)
	credentials.HandleFunc("/signin", authHandler.SignIn).Methods(http.MethodPost)
	credentials.HandleFunc("/confirm", authHandler.Confirm).Methods(http.MethodPost)

	api.HandleFunc("/auth/signout", authHandler.SignOut).Methods(http.MethodPost)

	// Protected session routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/auth/session", authHandler.Session).Methods(http.MethodGet)
	protected.HandleFunc("/auth/events", eventsHandler.Stream).Methods(http.MethodGet)
	protected.HandleFunc("/profile", profileHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/profile", profileHandler.Update).Methods(http.MethodPatch)

	// Post and identity routes run the ownership policy against the optional viewer
	public := api.NewRoute().Subrouter()
	public.Use(optionalAuthMiddleware)
	public.HandleFunc("/identities/{id}", profileHandler.GetIdentity).Methods(http.MethodGet)
	public.HandleFunc("/posts", postHandler.List).Methods(http.MethodGet)
	public.HandleFunc("/posts", postHandler.Create).Methods(http.MethodPost)
	public.HandleFunc("/posts/{id}", postHandler.Get).Methods(http.MethodGet)
	public.HandleFunc("/posts/{id}", postHandler.Save).Methods(http.MethodPut)
	public.HandleFunc("/posts/{id}", postHandler.Update).Methods(http.MethodPatch)
	public.HandleFunc("/posts/{id}", postHandler.Delete).Methods(http.MethodDelete)
	public.HandleFunc("/posts/{id}/publish", postHandler.Publish).Methods(http.MethodPost)
	public.HandleFunc("/posts/{id}/unpublish", postHandler.Unpublish).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer)).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
