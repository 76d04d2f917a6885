// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Backends embed or run it with NewStorage set.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage()
	s.ctx = context.Background()
	s.base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

func (s *Suite) at(minutes int) time.Time {
	return s.base.Add(time.Duration(minutes) * time.Minute)
}

func (s *Suite) post(id, author string, created int, published bool) *model.Post {
	p := &model.Post{
		ID:        model.PostID(id),
		AuthorID:  model.IdentityID(author),
		Title:     "Title " + id,
		Slug:      "title-" + id,
		Content:   "<p>body " + id + "</p>",
		Excerpt:   "body " + id,
		CreatedAt: s.at(created),
		UpdatedAt: s.at(created),
	}
	if published {
		t := s.at(created + 1)
		p.PublishedAt = &t
	}
	return p
}

// Identity tests

func (s *Suite) TestSaveAndGetIdentity() {
	identity := &model.Identity{
		ID:          "id-1",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Bio:         "writes things",
		CreatedAt:   s.at(0),
		UpdatedAt:   s.at(0),
	}

	err := s.Storage.SaveIdentity(s.ctx, identity)
	s.Require().NoError(err)

	retrieved, err := s.Storage.GetIdentity(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.DisplayName)
	s.Equal("alice@example.com", retrieved.Email)
	s.Equal("writes things", retrieved.Bio)
	s.True(identity.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestGetIdentityNotFound() {
	_, err := s.Storage.GetIdentity(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

// Credential tests

func (s *Suite) TestSaveAndGetCredential() {
	cred := &model.Credential{
		IdentityID:   "id-1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Confirmed:    true,
		CreatedAt:    s.at(0),
		UpdatedAt:    s.at(0),
	}
	s.Require().NoError(s.Storage.SaveCredential(s.ctx, cred))

	byID, err := s.Storage.GetCredential(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Equal("hash", byID.PasswordHash)
	s.True(byID.Confirmed)

	byEmail, err := s.Storage.GetCredentialByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("id-1"), byEmail.IdentityID)
}

func (s *Suite) TestCredentialUpdateKeepsEmail() {
	cred := &model.Credential{IdentityID: "id-1", Email: "alice@example.com", ConfirmationCode: "ABC123"}
	s.Require().NoError(s.Storage.SaveCredential(s.ctx, cred))

	cred.ConfirmationCode = ""
	cred.Confirmed = true
	s.Require().NoError(s.Storage.SaveCredential(s.ctx, cred))

	retrieved, err := s.Storage.GetCredentialByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.True(retrieved.Confirmed)
	s.Empty(retrieved.ConfirmationCode)
}

func (s *Suite) TestCredentialEmailTaken() {
	s.Require().NoError(s.Storage.SaveCredential(s.ctx, &model.Credential{IdentityID: "id-1", Email: "alice@example.com"}))

	err := s.Storage.SaveCredential(s.ctx, &model.Credential{IdentityID: "id-2", Email: "alice@example.com"})
	s.ErrorIs(err, model.ErrEmailTaken)
}

func (s *Suite) TestGetCredentialByEmailNotFound() {
	_, err := s.Storage.GetCredentialByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

// Session tests

func (s *Suite) TestSessionLifecycle() {
	session := &model.Session{
		ID:         "sess-1",
		IdentityID: "id-1",
		CreatedAt:  s.at(0),
		ExpiresAt:  s.at(60),
	}
	s.Require().NoError(s.Storage.SaveSession(s.ctx, session))

	retrieved, err := s.Storage.GetSession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("id-1"), retrieved.IdentityID)
	s.True(session.ExpiresAt.Equal(retrieved.ExpiresAt))

	s.Require().NoError(s.Storage.DeleteSession(s.ctx, "sess-1"))

	_, err = s.Storage.GetSession(s.ctx, "sess-1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestDeleteSessionMissingIsNoop() {
	s.NoError(s.Storage.DeleteSession(s.ctx, "nonexistent"))
}

func (s *Suite) TestGetSessionsForIdentity() {
	for _, sess := range []*model.Session{
		{ID: "sess-1", IdentityID: "id-1", CreatedAt: s.at(0), ExpiresAt: s.at(60)},
		{ID: "sess-2", IdentityID: "id-1", CreatedAt: s.at(1), ExpiresAt: s.at(61)},
		{ID: "sess-3", IdentityID: "id-2", CreatedAt: s.at(2), ExpiresAt: s.at(62)},
	} {
		s.Require().NoError(s.Storage.SaveSession(s.ctx, sess))
	}

	sessions, err := s.Storage.GetSessionsForIdentity(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Len(sessions, 2)

	_ = s.Storage.DeleteSession(s.ctx, "sess-1")
	sessions, err = s.Storage.GetSessionsForIdentity(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.SessionID("sess-2"), sessions[0].ID)
}

func (s *Suite) TestDeleteExpiredSessions() {
	for _, sess := range []*model.Session{
		{ID: "old", IdentityID: "id-1", CreatedAt: s.at(0), ExpiresAt: s.at(10)},
		{ID: "edge", IdentityID: "id-1", CreatedAt: s.at(0), ExpiresAt: s.at(20)},
		{ID: "fresh", IdentityID: "id-2", CreatedAt: s.at(0), ExpiresAt: s.at(30)},
	} {
		s.Require().NoError(s.Storage.SaveSession(s.ctx, sess))
	}

	expired, err := s.Storage.DeleteExpiredSessions(s.ctx, s.at(20))
	s.Require().NoError(err)
	s.ElementsMatch([]model.SessionID{"old", "edge"}, sessionIDs(expired))

	_, err = s.Storage.GetSession(s.ctx, "old")
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.Storage.GetSession(s.ctx, "fresh")
	s.NoError(err)

	again, err := s.Storage.DeleteExpiredSessions(s.ctx, s.at(20))
	s.Require().NoError(err)
	s.Empty(again)
}

// Post tests

func (s *Suite) TestCreateAndGetPost() {
	post := s.post("p1", "id-1", 0, false)
	s.Require().NoError(s.Storage.CreatePost(s.ctx, post))

	retrieved, err := s.Storage.GetPost(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(post.Title, retrieved.Title)
	s.Equal(post.Content, retrieved.Content)
	s.Equal(model.IdentityID("id-1"), retrieved.AuthorID)
	s.Nil(retrieved.PublishedAt)
	s.Equal(model.VisibilityDraft, retrieved.Visibility())
}

func (s *Suite) TestCreatePostDuplicate() {
	s.Require().NoError(s.Storage.CreatePost(s.ctx, s.post("p1", "id-1", 0, false)))

	err := s.Storage.CreatePost(s.ctx, s.post("p1", "id-2", 1, false))
	s.ErrorIs(err, model.ErrPostExists)
}

func (s *Suite) TestSavePostUpdates() {
	post := s.post("p1", "id-1", 0, false)
	s.Require().NoError(s.Storage.CreatePost(s.ctx, post))

	published := s.at(5)
	post.Title = "Renamed"
	post.PublishedAt = &published
	s.Require().NoError(s.Storage.SavePost(s.ctx, post))

	retrieved, err := s.Storage.GetPost(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Renamed", retrieved.Title)
	s.Require().NotNil(retrieved.PublishedAt)
	s.True(published.Equal(*retrieved.PublishedAt))
}

func (s *Suite) TestGetPostNotFound() {
	_, err := s.Storage.GetPost(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPostNotFound)
}

func (s *Suite) TestDeletePost() {
	s.Require().NoError(s.Storage.CreatePost(s.ctx, s.post("p1", "id-1", 0, true)))
	s.Require().NoError(s.Storage.DeletePost(s.ctx, "p1"))

	_, err := s.Storage.GetPost(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPostNotFound)

	posts, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{})
	s.Require().NoError(err)
	s.Empty(posts)
}

func (s *Suite) TestQueryPostsFilters() {
	for _, p := range []*model.Post{
		s.post("p1", "id-1", 0, true),
		s.post("p2", "id-1", 10, false),
		s.post("p3", "id-2", 20, true),
		s.post("p4", "id-2", 30, false),
	} {
		s.Require().NoError(s.Storage.CreatePost(s.ctx, p))
	}

	all, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{Order: model.OrderCreatedDesc})
	s.Require().NoError(err)
	s.Equal([]model.PostID{"p4", "p3", "p2", "p1"}, ids(all))

	published, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{PublishedOnly: true, Order: model.OrderPublishedDesc})
	s.Require().NoError(err)
	s.Equal([]model.PostID{"p3", "p1"}, ids(published))

	mine, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{AuthorID: "id-1", Order: model.OrderCreatedDesc})
	s.Require().NoError(err)
	s.Equal([]model.PostID{"p2", "p1"}, ids(mine))

	limited, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{Order: model.OrderCreatedDesc, Limit: 1})
	s.Require().NoError(err)
	s.Equal([]model.PostID{"p4"}, ids(limited))
}

func (s *Suite) TestQueryPostsEmpty() {
	posts, err := s.Storage.QueryPosts(s.ctx, model.PostFilter{AuthorID: "nobody"})
	s.Require().NoError(err)
	s.Empty(posts)
}

func ids(posts []*model.Post) []model.PostID {
	out := make([]model.PostID, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func sessionIDs(sessions []*model.Session) []model.SessionID {
	out := make([]model.SessionID, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.ID
	}
	return out
}
