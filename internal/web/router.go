package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/quill/internal/metrics"
	httpmw "github.com/mcoot/quill/internal/middleware"
	"github.com/mcoot/quill/internal/sanitize"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/web/handler"
	"github.com/mcoot/quill/internal/web/middleware"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	PostService *posts.Service
	Sanitizer   *sanitize.Sanitizer
	Metrics     metrics.Recorder // optional
	// SignInLimiter throttles the credential forms (optional)
	SignInLimiter *httpmw.RateLimiter
	StaticDir     string // Path to static files directory
	SecureCookies bool
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sanitizer := cfg.Sanitizer
	if sanitizer == nil {
		sanitizer = sanitize.New()
	}
	logger := cfg.Logger.With(slog.String("component", "web"))

	// Create middleware
	flashMiddleware := middleware.Flash()
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	// Apply global middleware to all routes
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Create handlers
	homeHandler := handler.NewHomeHandler(cfg.PostService, logger)
	postHandler := handler.NewPostHandler(cfg.PostService, cfg.AuthService, sanitizer, logger)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.SecureCookies, logger)
	profileHandler := handler.NewProfileHandler(cfg.AuthService, cfg.PostService, logger)
	editorHandler := handler.NewEditorHandler(cfg.PostService, logger)

	// Static files
	if cfg.StaticDir != "" {
		staticHandler := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.PathPrefix("/static/").Handler(staticHandler)
	}

	// Credential forms (optionally throttled)
	credentials := r.PathPrefix("/auth").Subrouter()
	credentials.Use(flashMiddleware)
	credentials.Use(optionalAuthMiddleware)
	if cfg.SignInLimiter != nil {
		credentials.Use(cfg.SignInLimiter.Middleware(tooManyAttempts))
	}
	credentials.HandleFunc("/signin", authHandler.SignIn).Methods(http.MethodPost)
	credentials.HandleFunc("/signup", authHandler.SignUp).Methods(http.MethodPost)
	credentials.HandleFunc("/confirm", authHandler.Confirm).Methods(http.MethodPost)

	// Public routes (optional auth for showing the identity in nav)
	public := r.NewRoute().Subrouter()
	public.Use(flashMiddleware)
	public.Use(optionalAuthMiddleware)
	public.HandleFunc("/", homeHandler.Home).Methods(http.MethodGet)
	public.HandleFunc("/post/{id}", postHandler.View).Methods(http.MethodGet)
	public.HandleFunc("/auth", authHandler.Page).Methods(http.MethodGet)
	public.HandleFunc("/auth/signout", authHandler.SignOut).Methods(http.MethodPost)

	// Protected routes (require auth)
	protected := r.NewRoute().Subrouter()
	protected.Use(flashMiddleware)
	protected.Use(authMiddleware)
	protected.HandleFunc("/profile", profileHandler.View).Methods(http.MethodGet)
	protected.HandleFunc("/profile", profileHandler.Update).Methods(http.MethodPost)
	protected.HandleFunc("/write", editorHandler.Write).Methods(http.MethodGet)
	protected.HandleFunc("/write", editorHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/edit/{id}", editorHandler.Edit).Methods(http.MethodGet)
	protected.HandleFunc("/edit/{id}", editorHandler.Update).Methods(http.MethodPost)
	protected.HandleFunc("/edit/{id}/publish", editorHandler.Publish).Methods(http.MethodPost)
	protected.HandleFunc("/edit/{id}/unpublish", editorHandler.Unpublish).Methods(http.MethodPost)
	protected.HandleFunc("/edit/{id}/delete", editorHandler.Delete).Methods(http.MethodPost)

	return r
}

func tooManyAttempts(w http.ResponseWriter, _ *http.Request, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte("Too many attempts, try again in " + strconv.Itoa(int(retryAfter.Seconds())) + " seconds\n"))
}
