package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

// homePageSize bounds the number of posts on the home page
const homePageSize = 50

// HomeHandler handles the home page
type HomeHandler struct {
	postService *posts.Service
	logger      *slog.Logger
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(postService *posts.Service, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		postService: postService,
		logger:      logger,
	}
}

// Home renders the published posts
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetIdentity(r.Context())
	list, err := h.postService.List(r.Context(), viewer, model.PostQuery{
		Status: model.VisibilityPublished,
		Limit:  homePageSize,
	})
	if err != nil {
		h.logger.Error("failed to list posts", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "Something went wrong", "Posts could not be loaded.")
		return
	}

	render(w, r, http.StatusOK, pages.Home(pages.HomeData{
		PageData: pageData(r, "Home"),
		Posts:    list,
	}))
}
