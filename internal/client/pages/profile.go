package pages

import (
	"context"
	"slices"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
)

// ProfileData is the signed-in identity and every post it wrote
type ProfileData struct {
	Identity *model.Identity
	// Posts are newest first, drafts included
	Posts []PostView
}

// Profile follows the current identity: it reloads whenever the session changes
type Profile struct {
	store       ResourceStore
	sessions    subscriber
	binding     *view.Binding[ProfileData]
	unsubscribe func()
}

// NewProfile creates the profile page and starts loading it
func NewProfile(ctx context.Context, store ResourceStore, sessions *session.Store, onChange func(view.State[ProfileData])) *Profile {
	p := &Profile{store: store, sessions: sessions}
	p.binding = view.NewBinding(ctx, p.fetch, onChange)
	p.unsubscribe = sessions.Subscribe(func(session.Snapshot) {
		p.binding.Reload()
	})
	p.binding.Load("")
	return p
}

func (p *Profile) fetch(ctx context.Context, _ string) (ProfileData, error) {
	me := p.sessions.CurrentIdentity()
	if me == nil {
		return ProfileData{}, clienterr.Provider("profile", clienterr.ErrUnauthorized)
	}
	posts, err := p.store.Query(ctx, model.PostQuery{AuthorID: me.ID})
	if err != nil {
		return ProfileData{}, err
	}
	slices.SortStableFunc(posts, func(a, b *model.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return ProfileData{Identity: me, Posts: viewsFor(posts, me)}, nil
}

// State returns the current render state
func (p *Profile) State() view.State[ProfileData] { return p.binding.State() }

// Wait blocks until no load is in flight
func (p *Profile) Wait() { p.binding.Wait() }

// Close tears the page down
func (p *Profile) Close() {
	p.unsubscribe()
	p.binding.Close()
}
