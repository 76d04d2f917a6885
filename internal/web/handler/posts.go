package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
	"github.com/mcoot/quill/internal/sanitize"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

// PostHandler renders single posts
type PostHandler struct {
	postService *posts.Service
	authService *auth.Service
	sanitizer   *sanitize.Sanitizer
	logger      *slog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postService *posts.Service, authService *auth.Service, sanitizer *sanitize.Sanitizer, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		authService: authService,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// View renders a post. Drafts are only shown to their author; everyone
// else gets the same page as for a post that doesn't exist.
func (h *PostHandler) View(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetIdentity(r.Context())
	id := model.PostID(mux.Vars(r)["id"])

	post, err := h.postService.Get(r.Context(), viewer, id)
	if err != nil {
		if !errors.Is(err, model.ErrPostNotFound) {
			h.logger.Error("failed to load post", slog.String("post_id", string(id)), slog.String("error", err.Error()))
		}
		renderNotFound(w, r)
		return
	}

	author, err := h.authService.GetIdentity(r.Context(), post.AuthorID)
	if err != nil {
		h.logger.Warn("failed to load author", slog.String("identity_id", string(post.AuthorID)), slog.String("error", err.Error()))
		author = nil
	}

	render(w, r, http.StatusOK, pages.Post(pages.PostData{
		PageData: pageData(r, post.Title),
		Post:     post,
		Author:   author,
		Body:     h.sanitizer.HTML(post.Content),
		CanEdit:  ownership.CanEdit(post, viewer),
	}))
}
