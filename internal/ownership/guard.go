// Package ownership decides what a viewer may see and change.
//
// Every read and write of a post, on the server and in the client, goes
// through these functions so the rules live in one place.
package ownership

import "github.com/mcoot/quill/internal/model"

// CanEdit reports whether the viewer owns the post. Anonymous viewers own nothing.
func CanEdit(post *model.Post, viewer *model.Identity) bool {
	if post == nil || viewer == nil {
		return false
	}
	return post.AuthorID == viewer.ID
}

// CanView reports whether the post is visible to the viewer
func CanView(post *model.Post, viewer *model.Identity) bool {
	if post == nil {
		return false
	}
	return post.IsPublished() || CanEdit(post, viewer)
}

// VisibleFields returns the post as the viewer may see it. A draft viewed by
// anyone but its owner yields model.ErrPostNotFound, exactly as a missing post does.
func VisibleFields(post *model.Post, viewer *model.Identity) (*model.Post, error) {
	if !CanView(post, viewer) {
		return nil, model.ErrPostNotFound
	}
	return post, nil
}

// Visible filters posts down to those the viewer may see, keeping order
func Visible(posts []*model.Post, viewer *model.Identity) []*model.Post {
	out := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if CanView(p, viewer) {
			out = append(out, p)
		}
	}
	return out
}
