package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mcoot/quill/internal/api/request"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/model"
)

func escape(segment string) string {
	return url.PathEscape(segment)
}

func (c *Client) Query(ctx context.Context, filter model.PostQuery) ([]*model.Post, error) {
	q := url.Values{}
	if filter.AuthorID != "" {
		q.Set("author", string(filter.AuthorID))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/posts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp response.PostList
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, classify("query_posts", err)
	}
	out := make([]*model.Post, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		out = append(out, p.ToModel())
	}
	return out, nil
}

func (c *Client) GetByID(ctx context.Context, id model.PostID) (*model.Post, error) {
	return c.postCall(ctx, "get_post", http.MethodGet, id, "", nil)
}

// Insert creates or replaces the post under id
func (c *Client) Insert(ctx context.Context, id model.PostID, input model.PostInput) (*model.Post, error) {
	req := request.PostRequest{
		Title:      input.Title,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		Publish:    input.Publish,
	}
	return c.postCall(ctx, "insert_post", http.MethodPut, id, "", req)
}

// Create creates a post under a server-assigned id
func (c *Client) Create(ctx context.Context, input model.PostInput) (*model.Post, error) {
	req := request.PostRequest{
		Title:      input.Title,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		Publish:    input.Publish,
	}
	var resp response.Post
	if err := c.do(ctx, http.MethodPost, "/posts", req, &resp); err != nil {
		return nil, classify("create_post", err)
	}
	return resp.ToModel(), nil
}

func (c *Client) Update(ctx context.Context, id model.PostID, patch model.PostPatch) (*model.Post, error) {
	req := request.PatchPostRequest{
		Title:      patch.Title,
		Content:    patch.Content,
		CoverImage: patch.CoverImage,
	}
	return c.postCall(ctx, "update_post", http.MethodPatch, id, "", req)
}

func (c *Client) Delete(ctx context.Context, id model.PostID) error {
	if id == "" {
		return clienterr.ErrNotFound
	}
	if err := c.do(ctx, http.MethodDelete, "/posts/"+escape(string(id)), nil, nil); err != nil {
		return classify("delete_post", err)
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, id model.PostID) (*model.Post, error) {
	return c.postCall(ctx, "publish_post", http.MethodPost, id, "/publish", nil)
}

func (c *Client) Unpublish(ctx context.Context, id model.PostID) (*model.Post, error) {
	return c.postCall(ctx, "unpublish_post", http.MethodPost, id, "/unpublish", nil)
}

// postCall performs a request on /posts/{id}[suffix] that answers with a post
func (c *Client) postCall(ctx context.Context, op, method string, id model.PostID, suffix string, body any) (*model.Post, error) {
	if id == "" {
		return nil, clienterr.ErrNotFound
	}
	var resp response.Post
	if err := c.do(ctx, method, "/posts/"+escape(string(id))+suffix, body, &resp); err != nil {
		return nil, classify(op, err)
	}
	return resp.ToModel(), nil
}
