package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

// ProfileHandler handles the signed-in visitor's profile page
type ProfileHandler struct {
	authService *auth.Service
	postService *posts.Service
	logger      *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(authService *auth.Service, postService *posts.Service, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		postService: postService,
		logger:      logger,
	}
}

// View shows the profile and every post the visitor wrote, newest first
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, http.StatusOK, middleware.GetIdentity(r.Context()), nil)
}

// Update saves the profile form
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	if err := r.ParseForm(); err != nil {
		renderError(w, r, http.StatusBadRequest, "Bad request", "Invalid form data")
		return
	}

	update := model.ProfileUpdate{
		DisplayName: formField(r, "display_name"),
		AvatarURL:   formField(r, "avatar_url"),
		Bio:         formField(r, "bio"),
		Website:     formField(r, "website"),
	}
	updated, err := h.authService.UpdateProfile(r.Context(), me.ID, update)
	if err != nil {
		if fields := fieldErrors(err); fields != nil {
			h.renderProfile(w, r, http.StatusOK, me, fields)
			return
		}
		h.logger.Error("failed to update profile", slog.String("identity_id", string(me.ID)), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "Something went wrong", "Your profile could not be saved.")
		return
	}

	redirect(w, r, "/profile", middleware.FlashSuccess, "Profile saved, "+updated.DisplayName)
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, me *model.Identity, fields map[string]string) {
	mine, err := h.postService.List(r.Context(), me, model.PostQuery{AuthorID: me.ID})
	if err != nil {
		h.logger.Error("failed to list posts", slog.String("identity_id", string(me.ID)), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "Something went wrong", "Your posts could not be loaded.")
		return
	}

	render(w, r, status, pages.Profile(pages.ProfileData{
		PageData:    pageData(r, "Profile"),
		Posts:       mine,
		FieldErrors: fields,
	}))
}

// formField returns a pointer to the trimmed form value, or nil when the
// field was not submitted at all
func formField(r *http.Request, name string) *string {
	if _, ok := r.PostForm[name]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.PostForm.Get(name))
	return &v
}
