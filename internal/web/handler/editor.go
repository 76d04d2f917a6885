package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

const actionPublish = "publish"

// EditorHandler handles the write and edit pages
type EditorHandler struct {
	postService *posts.Service
	logger      *slog.Logger
}

// NewEditorHandler creates a new EditorHandler
func NewEditorHandler(postService *posts.Service, logger *slog.Logger) *EditorHandler {
	return &EditorHandler{
		postService: postService,
		logger:      logger,
	}
}

// Write renders an empty editor
func (h *EditorHandler) Write(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Editor(pages.EditorData{
		PageData: pageData(r, "Write"),
	}))
}

// Create saves a new post as a draft, or publishes it straight away
func (h *EditorHandler) Create(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	input, ok := h.parseInput(w, r, nil)
	if !ok {
		return
	}

	post, err := h.postService.Create(r.Context(), me, input)
	if err != nil {
		h.renderSaveError(w, r, nil, input, err)
		return
	}

	if post.IsPublished() {
		redirect(w, r, "/post/"+string(post.ID), middleware.FlashSuccess, "Post published")
		return
	}
	redirect(w, r, "/edit/"+string(post.ID), middleware.FlashSuccess, "Draft saved")
}

// Edit renders the editor for a post the visitor owns
func (h *EditorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}

	render(w, r, http.StatusOK, pages.Editor(pages.EditorData{
		PageData:   pageData(r, "Edit "+post.Title),
		Post:       post,
		Title:      post.Title,
		Content:    post.Content,
		CoverImage: post.CoverImage,
	}))
}

// Update saves the edit form
func (h *EditorHandler) Update(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetIdentity(r.Context())
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}
	input, ok := h.parseInput(w, r, post)
	if !ok {
		return
	}

	updated, err := h.postService.Update(r.Context(), me, post.ID, model.PostPatch{
		Title:      &input.Title,
		Content:    &input.Content,
		CoverImage: &input.CoverImage,
	})
	if err == nil && input.Publish {
		updated, err = h.postService.Publish(r.Context(), me, post.ID)
	}
	if err != nil {
		h.renderSaveError(w, r, post, input, err)
		return
	}

	if input.Publish {
		redirect(w, r, "/post/"+string(updated.ID), middleware.FlashSuccess, "Post published")
		return
	}
	redirect(w, r, "/edit/"+string(updated.ID), middleware.FlashSuccess, "Changes saved")
}

// Publish makes a post visible to everyone
func (h *EditorHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id := model.PostID(mux.Vars(r)["id"])
	if _, err := h.postService.Publish(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		h.handleActionError(w, r, id, err)
		return
	}
	redirect(w, r, "/post/"+string(id), middleware.FlashSuccess, "Post published")
}

// Unpublish returns a post to draft
func (h *EditorHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	id := model.PostID(mux.Vars(r)["id"])
	if _, err := h.postService.Unpublish(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		h.handleActionError(w, r, id, err)
		return
	}
	redirect(w, r, "/edit/"+string(id), middleware.FlashInfo, "Post moved back to drafts")
}

// Delete removes a post and returns to the profile page
func (h *EditorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PostID(mux.Vars(r)["id"])
	if err := h.postService.Delete(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		h.handleActionError(w, r, id, err)
		return
	}
	redirect(w, r, "/profile", middleware.FlashSuccess, "Post deleted")
}

// ownedPost loads the post named in the path. Posts the visitor can't
// edit are reported exactly like missing ones.
func (h *EditorHandler) ownedPost(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	me := middleware.GetIdentity(r.Context())
	id := model.PostID(mux.Vars(r)["id"])

	post, err := h.postService.Get(r.Context(), me, id)
	if err == nil && !ownership.CanEdit(post, me) {
		err = model.ErrPostNotFound
	}
	if err != nil {
		h.handleActionError(w, r, id, err)
		return nil, false
	}
	return post, true
}

func (h *EditorHandler) parseInput(w http.ResponseWriter, r *http.Request, post *model.Post) (model.PostInput, bool) {
	if err := r.ParseForm(); err != nil {
		renderError(w, r, http.StatusBadRequest, "Bad request", "Invalid form data")
		return model.PostInput{}, false
	}
	return model.PostInput{
		Title:      strings.TrimSpace(r.PostForm.Get("title")),
		Content:    r.PostForm.Get("content"),
		CoverImage: strings.TrimSpace(r.PostForm.Get("cover_image")),
		Publish:    r.PostForm.Get("action") == actionPublish,
	}, true
}

func (h *EditorHandler) renderSaveError(w http.ResponseWriter, r *http.Request, post *model.Post, input model.PostInput, err error) {
	if !errors.Is(err, model.ErrInvalidPost) {
		if post != nil {
			h.handleActionError(w, r, post.ID, err)
			return
		}
		h.logger.Error("failed to save post", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "Something went wrong", "Your post could not be saved.")
		return
	}

	title := "Write"
	if post != nil {
		title = "Edit " + post.Title
	}
	render(w, r, http.StatusOK, pages.Editor(pages.EditorData{
		PageData:    pageData(r, title),
		Post:        post,
		Title:       input.Title,
		Content:     input.Content,
		CoverImage:  input.CoverImage,
		Error:       "Please fix the errors below",
		FieldErrors: fieldErrors(err),
	}))
}

func (h *EditorHandler) handleActionError(w http.ResponseWriter, r *http.Request, id model.PostID, err error) {
	if errors.Is(err, model.ErrPostNotFound) {
		renderNotFound(w, r)
		return
	}
	h.logger.Error("post action failed", slog.String("post_id", string(id)), slog.String("error", err.Error()))
	renderError(w, r, http.StatusInternalServerError, "Something went wrong", "The post could not be changed.")
}
