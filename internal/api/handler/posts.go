package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/quill/internal/api/middleware"
	"github.com/mcoot/quill/internal/api/request"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/posts"
)

// PostHandler handles post endpoints
type PostHandler struct {
	postService *posts.Service
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *posts.Service) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// List handles GET /api/v1/posts?author=&status=&limit=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := model.PostQuery{
		AuthorID: model.IdentityID(q.Get("author")),
		Status:   model.Visibility(q.Get("status")),
	}
	viewer := middleware.GetIdentity(r.Context())
	if query.AuthorID == "me" {
		if viewer == nil {
			WriteError(w, NewUnauthorizedError())
			return
		}
		query.AuthorID = viewer.ID
	}
	switch query.Status {
	case "", model.VisibilityDraft, model.VisibilityPublished:
	default:
		WriteError(w, NewInvalidRequestError("status must be draft or published"))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteError(w, NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		query.Limit = limit
	}

	list, err := h.postService.List(r.Context(), viewer, query)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostListFromModel(list))
}

// Get handles GET /api/v1/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), middleware.GetIdentity(r.Context()), postID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostFromModel(post))
}

// Create handles POST /api/v1/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.PostRequest
	if !decode(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), middleware.GetIdentity(r.Context()), postInput(req))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/posts/"+url.PathEscape(string(post.ID)), response.PostFromModel(post))
}

// Save handles PUT /api/v1/posts/{id}, an upsert under a client-assigned id
func (h *PostHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req request.PostRequest
	if !decode(w, r, &req) {
		return
	}

	post, err := h.postService.Save(r.Context(), middleware.GetIdentity(r.Context()), postID(r), postInput(req))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostFromModel(post))
}

// Update handles PATCH /api/v1/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.PatchPostRequest
	if !decode(w, r, &req) {
		return
	}

	post, err := h.postService.Update(r.Context(), middleware.GetIdentity(r.Context()), postID(r), model.PostPatch{
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostFromModel(post))
}

// Publish handles POST /api/v1/posts/{id}/publish
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Publish(r.Context(), middleware.GetIdentity(r.Context()), postID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostFromModel(post))
}

// Unpublish handles POST /api/v1/posts/{id}/unpublish
func (h *PostHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Unpublish(r.Context(), middleware.GetIdentity(r.Context()), postID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PostFromModel(post))
}

// Delete handles DELETE /api/v1/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.postService.Delete(r.Context(), middleware.GetIdentity(r.Context()), postID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

func postID(r *http.Request) model.PostID {
	return model.PostID(mux.Vars(r)["id"])
}

func postInput(req request.PostRequest) model.PostInput {
	return model.PostInput{
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Publish:    req.Publish,
	}
}
