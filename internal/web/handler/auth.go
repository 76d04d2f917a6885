package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

// AuthHandler handles the sign-in page and session actions
type AuthHandler struct {
	authService   *auth.Service
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *auth.Service, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Page renders the sign-in / sign-up page, or the confirmation form when
// the confirm query parameter names an email
func (h *AuthHandler) Page(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()) != nil {
		// Already signed in
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	render(w, r, http.StatusOK, pages.Auth(pages.AuthData{
		PageData:     pageData(r, "Sign in"),
		ConfirmEmail: r.URL.Query().Get("confirm"),
	}))
}

// SignIn handles the sign-in form
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAuthError(w, r, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderAuthError(w, r, http.StatusOK, "Email and password are required", email, nil)
		return
	}

	session, err := h.authService.SignIn(r.Context(), email, password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		redirect(w, r, "/auth?confirm="+url.QueryEscape(email), middleware.FlashInfo, "Confirm your email before signing in")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.renderAuthError(w, r, http.StatusOK, "Invalid email or password", email, nil)
		return
	default:
		h.logger.Error("sign-in failed", slog.String("error", err.Error()))
		h.renderAuthError(w, r, http.StatusInternalServerError, "Sign-in is unavailable, please try again", email, nil)
		return
	}

	h.setSessionCookie(w, session)
	redirect(w, r, "/", middleware.FlashSuccess, "Welcome back, "+session.Identity.DisplayName+"!")
}

// SignUp handles the sign-up form
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAuthError(w, r, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if password != r.FormValue("password_confirm") {
		h.renderAuthError(w, r, http.StatusOK, "", email, map[string]string{
			"password_confirm": "Passwords do not match",
		})
		return
	}

	result, err := h.authService.SignUp(r.Context(), email, password)
	if err != nil {
		if fields := fieldErrors(err); fields != nil {
			h.renderAuthError(w, r, http.StatusOK, "", email, fields)
			return
		}
		if errors.Is(err, model.ErrEmailTaken) {
			h.renderAuthError(w, r, http.StatusOK, "", email, map[string]string{
				"email": "An account with this email already exists",
			})
			return
		}
		h.logger.Error("sign-up failed", slog.String("error", err.Error()))
		h.renderAuthError(w, r, http.StatusInternalServerError, "Sign-up is unavailable, please try again", email, nil)
		return
	}

	if result.Session == nil {
		redirect(w, r, "/auth?confirm="+url.QueryEscape(result.Identity.Email), middleware.FlashInfo,
			"Check your email for a confirmation code")
		return
	}

	h.setSessionCookie(w, result.Session)
	redirect(w, r, "/", middleware.FlashSuccess, "Account created! Welcome, "+result.Identity.DisplayName+"!")
}

// Confirm handles the confirmation code form
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAuthError(w, r, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if err := h.authService.Confirm(r.Context(), email, r.FormValue("code")); err != nil {
		if !errors.Is(err, auth.ErrInvalidConfirmation) {
			h.logger.Error("confirmation failed", slog.String("error", err.Error()))
		}
		render(w, r, http.StatusOK, pages.Auth(pages.AuthData{
			PageData:     pageData(r, "Confirm your email"),
			ConfirmEmail: email,
			FieldErrors:  map[string]string{"code": "That code is not valid"},
		}))
		return
	}

	redirect(w, r, "/auth", middleware.FlashSuccess, "Email confirmed, you can now sign in")
}

// SignOut ends the current session. Signing out when already anonymous succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		if err := h.authService.SignOut(r.Context(), session.Token, model.SignOutLocal); err != nil {
			h.logger.Warn("sign-out failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(w, r, middleware.LandingPath, middleware.FlashInfo, "You have been signed out")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.ExpiresAt.Sub(session.CreatedAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) renderAuthError(w http.ResponseWriter, r *http.Request, status int, msg, email string, fields map[string]string) {
	render(w, r, status, pages.Auth(pages.AuthData{
		PageData:    pageData(r, "Sign in"),
		Email:       email,
		Error:       msg,
		FieldErrors: fields,
	}))
}
