package pages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
)

// fakeStore is an in-memory ResourceStore that applies the ownership rules
// for whoever the session store says is signed in
type fakeStore struct {
	sessions *session.Store

	mu      sync.Mutex
	posts   map[model.PostID]*model.Post
	now     time.Time
	fail    error
	inserts int
	updates int
	// gate, when set, blocks GetByID until closed
	gate chan struct{}
}

func newFakeStore(sessions *session.Store) *fakeStore {
	return &fakeStore{
		sessions: sessions,
		posts:    make(map[model.PostID]*model.Post),
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *fakeStore) add(id model.PostID, author model.IdentityID, title string, published bool) *model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	p := &model.Post{ID: id, AuthorID: author, Title: title, CreatedAt: now, UpdatedAt: now}
	if published {
		p.PublishedAt = &now
	}
	s.posts[id] = p
	return p.Clone()
}

func (s *fakeStore) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *fakeStore) counts() (inserts, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts, s.updates
}

func (s *fakeStore) stored(id model.PostID) *model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		return p.Clone()
	}
	return nil
}

func (s *fakeStore) Query(_ context.Context, filter model.PostQuery) ([]*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	viewer := s.sessions.CurrentIdentity()
	out := []*model.Post{}
	for _, p := range s.posts {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && p.Visibility() != filter.Status {
			continue
		}
		if ownership.CanView(p, viewer) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id model.PostID) (*model.Post, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, clienterr.ErrNotFound
	}
	visible, err := ownership.VisibleFields(p, s.sessions.CurrentIdentity())
	if err != nil {
		return nil, clienterr.ErrNotFound
	}
	return visible.Clone(), nil
}

func (s *fakeStore) owned(id model.PostID) (*model.Post, error) {
	p, ok := s.posts[id]
	if !ok || !ownership.CanEdit(p, s.sessions.CurrentIdentity()) {
		return nil, clienterr.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) Insert(_ context.Context, id model.PostID, input model.PostInput) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	viewer := s.sessions.CurrentIdentity()
	if viewer == nil {
		return nil, clienterr.Provider("insert", clienterr.ErrUnauthorized)
	}
	s.inserts++
	now := s.tick()
	p, ok := s.posts[id]
	if ok && !ownership.CanEdit(p, viewer) {
		return nil, clienterr.ErrNotFound
	}
	if !ok {
		p = &model.Post{ID: id, AuthorID: viewer.ID, CreatedAt: now}
		s.posts[id] = p
	}
	p.Title, p.Content, p.CoverImage, p.UpdatedAt = input.Title, input.Content, input.CoverImage, now
	return p.Clone(), nil
}

func (s *fakeStore) Update(_ context.Context, id model.PostID, patch model.PostPatch) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	p, err := s.owned(id)
	if err != nil {
		return nil, err
	}
	s.updates++
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.CoverImage != nil {
		p.CoverImage = *patch.CoverImage
	}
	p.UpdatedAt = s.tick()
	return p.Clone(), nil
}

func (s *fakeStore) Delete(_ context.Context, id model.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.owned(id); err != nil {
		return err
	}
	delete(s.posts, id)
	return nil
}

func (s *fakeStore) Publish(_ context.Context, id model.PostID) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.owned(id)
	if err != nil {
		return nil, err
	}
	if p.PublishedAt == nil {
		now := s.tick()
		p.PublishedAt = &now
	}
	return p.Clone(), nil
}

func (s *fakeStore) Unpublish(_ context.Context, id model.PostID) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.owned(id)
	if err != nil {
		return nil, err
	}
	p.PublishedAt = nil
	return p.Clone(), nil
}

var errOffline = errors.New("offline")
