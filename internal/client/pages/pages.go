// Package pages holds the client page models. Each page binds a fetch to
// the session store and runs every post it shows through the ownership
// rules, so a page never offers an action its viewer could not perform.
package pages

import (
	"context"
	"errors"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
)

// ResourceStore is the remote post store. Implementations return
// clienterr values for failures they can classify.
type ResourceStore interface {
	Query(ctx context.Context, filter model.PostQuery) ([]*model.Post, error)
	GetByID(ctx context.Context, id model.PostID) (*model.Post, error)
	// Insert creates the post under a caller-chosen id, or replaces it if
	// the caller already owns one with that id
	Insert(ctx context.Context, id model.PostID, input model.PostInput) (*model.Post, error)
	Update(ctx context.Context, id model.PostID, patch model.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, id model.PostID) error
	Publish(ctx context.Context, id model.PostID) (*model.Post, error)
	Unpublish(ctx context.Context, id model.PostID) (*model.Post, error)
}

// PostView is a post together with what the current viewer may do with it
type PostView struct {
	Post    *model.Post
	CanEdit bool
}

func viewsFor(posts []*model.Post, viewer *model.Identity) []PostView {
	visible := ownership.Visible(posts, viewer)
	out := make([]PostView, 0, len(visible))
	for _, p := range visible {
		out = append(out, PostView{Post: p, CanEdit: ownership.CanEdit(p, viewer)})
	}
	return out
}

// notFound folds the server's not-found error into the client taxonomy
func notFound(err error) error {
	if errors.Is(err, model.ErrPostNotFound) {
		return clienterr.ErrNotFound
	}
	return err
}

// subscriber is the part of the session store a page needs
type subscriber interface {
	CurrentIdentity() *model.Identity
	Subscribe(fn session.Listener) func()
}
