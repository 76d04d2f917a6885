package pages

import (
	"context"

	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
)

// HomeLimit caps the number of posts on the home page
const HomeLimit = 50

// Home lists published posts, newest first
type Home struct {
	store       ResourceStore
	sessions    subscriber
	binding     *view.Binding[[]PostView]
	unsubscribe func()
}

// NewHome creates the home page and starts loading it. onChange receives
// every render state and may be nil.
func NewHome(ctx context.Context, store ResourceStore, sessions *session.Store, onChange func(view.State[[]PostView])) *Home {
	h := &Home{store: store, sessions: sessions}
	h.binding = view.NewBinding(ctx, h.fetch, onChange)
	// Edit affordances depend on who is looking
	h.unsubscribe = sessions.Subscribe(func(session.Snapshot) {
		h.binding.Reload()
	})
	h.binding.Load("")
	return h
}

func (h *Home) fetch(ctx context.Context, _ string) ([]PostView, error) {
	posts, err := h.store.Query(ctx, model.PostQuery{Status: model.VisibilityPublished, Limit: HomeLimit})
	if err != nil {
		return nil, err
	}
	return viewsFor(posts, h.sessions.CurrentIdentity()), nil
}

// State returns the current render state
func (h *Home) State() view.State[[]PostView] { return h.binding.State() }

// Refresh reloads the list
func (h *Home) Refresh() { h.binding.Reload() }

// Wait blocks until no load is in flight
func (h *Home) Wait() { h.binding.Wait() }

// Close tears the page down
func (h *Home) Close() {
	h.unsubscribe()
	h.binding.Close()
}
