package pages

import (
	"context"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
)

// Post shows a single post. A draft belonging to someone else renders
// exactly like a post that does not exist.
type Post struct {
	store       ResourceStore
	sessions    subscriber
	binding     *view.Binding[PostView]
	unsubscribe func()
}

// NewPost creates an empty post page; call Show to load a post
func NewPost(ctx context.Context, store ResourceStore, sessions *session.Store, onChange func(view.State[PostView])) *Post {
	p := &Post{store: store, sessions: sessions}
	p.binding = view.NewBinding(ctx, p.fetch, onChange)
	p.unsubscribe = sessions.Subscribe(func(session.Snapshot) {
		if p.binding.State().Attempt > 0 {
			p.binding.Reload()
		}
	})
	return p
}

// Show loads id, abandoning any post still loading
func (p *Post) Show(id model.PostID) {
	p.binding.Load(string(id))
}

func (p *Post) fetch(ctx context.Context, key string) (PostView, error) {
	post, err := p.store.GetByID(ctx, model.PostID(key))
	if err != nil {
		return PostView{}, notFound(err)
	}
	viewer := p.sessions.CurrentIdentity()
	visible, err := ownership.VisibleFields(post, viewer)
	if err != nil {
		return PostView{}, clienterr.ErrNotFound
	}
	return PostView{Post: visible, CanEdit: ownership.CanEdit(visible, viewer)}, nil
}

// State returns the current render state
func (p *Post) State() view.State[PostView] { return p.binding.State() }

// Wait blocks until no load is in flight
func (p *Post) Wait() { p.binding.Wait() }

// Close tears the page down
func (p *Post) Close() {
	p.unsubscribe()
	p.binding.Close()
}
