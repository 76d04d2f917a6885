package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/quill/internal/api/middleware"
	"github.com/mcoot/quill/internal/api/request"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
)

// ProfileHandler handles identity profile endpoints
type ProfileHandler struct {
	authService *auth.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *auth.Service) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
	}
}

// GetMe handles GET /api/v1/profile
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.IdentityFromModel(identity))
}

// Update handles PATCH /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), identity.ID, model.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
		Website:     req.Website,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.IdentityFromModel(updated))
}

// GetIdentity handles GET /api/v1/identities/{id}
func (h *ProfileHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id := model.IdentityID(mux.Vars(r)["id"])

	identity, err := h.authService.GetIdentity(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Email is only shown to the identity itself
	viewer := middleware.GetIdentity(r.Context())
	if viewer == nil || viewer.ID != identity.ID {
		identity = identity.Public()
	}

	response.JSON(w, http.StatusOK, response.IdentityFromModel(identity))
}
