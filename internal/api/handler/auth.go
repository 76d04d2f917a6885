package handler

import (
	"net/http"

	"github.com/mcoot/quill/internal/api/middleware"
	"github.com/mcoot/quill/internal/api/request"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
)

// AuthHandler handles identity provider endpoints
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req request.SignUpRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.authService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SignUpResponseFromResult(result))
}

// Confirm handles POST /api/v1/auth/confirm
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.Confirm(r.Context(), req.Email, req.Code); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req request.SignInRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// SignOut handles POST /api/v1/auth/signout. An absent or stale token
// still succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req request.SignOutRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	scope := model.SignOutScope(req.Scope)
	switch scope {
	case "":
		scope = model.SignOutLocal
	case model.SignOutLocal, model.SignOutGlobal:
	default:
		WriteError(w, NewInvalidRequestError("scope must be local or global"))
		return
	}

	if token := middleware.ExtractToken(r); token != "" {
		if err := h.authService.SignOut(r.Context(), token, scope); err != nil {
			WriteError(w, err)
			return
		}
	}

	response.NoContent(w)
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		WriteError(w, NewUnauthorizedError())
		return
	}

	response.JSON(w, http.StatusOK, response.SessionResponseFromSession(session))
}
