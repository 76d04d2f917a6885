package pages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
)

var (
	alice = &model.Identity{ID: "alice", DisplayName: "Alice"}
	bob   = &model.Identity{ID: "bob", DisplayName: "Bob"}
)

type PagesSuite struct {
	suite.Suite
	ctx      context.Context
	sessions *session.Store
	writer   *session.Writer
	store    *fakeStore
}

func TestPagesSuite(t *testing.T) {
	suite.Run(t, new(PagesSuite))
}

func (s *PagesSuite) SetupTest() {
	s.ctx = context.Background()
	s.sessions, s.writer = session.New()
	s.writer.SetIdentity(nil)
	s.store = newFakeStore(s.sessions)
}

func (s *PagesSuite) signIn(identity *model.Identity) {
	s.writer.SetIdentity(identity)
}

// Home

func (s *PagesSuite) TestHomeEmptyIsReady() {
	home := NewHome(s.ctx, s.store, s.sessions, nil)
	defer home.Close()
	home.Wait()

	st := home.State()
	s.Equal(view.Ready, st.Status)
	s.Empty(st.Data)
}

func (s *PagesSuite) TestHomeListsOnlyPublished() {
	s.store.add("p1", alice.ID, "Public", true)
	s.store.add("d1", alice.ID, "Secret draft", false)
	s.signIn(alice)

	home := NewHome(s.ctx, s.store, s.sessions, nil)
	defer home.Close()
	home.Wait()

	st := home.State()
	s.Require().Equal(view.Ready, st.Status)
	s.Require().Len(st.Data, 1)
	s.Equal(model.PostID("p1"), st.Data[0].Post.ID)
	s.True(st.Data[0].CanEdit)
}

func (s *PagesSuite) TestHomeReevaluatesOnSessionChange() {
	s.store.add("p1", alice.ID, "Public", true)
	s.signIn(alice)

	home := NewHome(s.ctx, s.store, s.sessions, nil)
	defer home.Close()
	home.Wait()
	s.True(home.State().Data[0].CanEdit)

	s.signIn(bob)
	home.Wait()
	s.Require().Len(home.State().Data, 1)
	s.False(home.State().Data[0].CanEdit)
}

func (s *PagesSuite) TestHomeError() {
	s.store.setFailure(clienterr.Provider("query", errOffline))

	var states []view.State[[]PostView]
	home := NewHome(s.ctx, s.store, s.sessions, func(st view.State[[]PostView]) {
		states = append(states, st)
	})
	defer home.Close()
	home.Wait()

	s.Equal(view.Error, home.State().Status)
	s.Equal("Something went wrong: offline", home.State().Message)
	s.Require().Len(states, 2)
	s.Equal(view.Loading, states[0].Status)
	s.Equal(view.Error, states[1].Status)

	s.store.setFailure(nil)
	home.Refresh()
	home.Wait()
	s.Equal(view.Ready, home.State().Status)
}

// Post

func (s *PagesSuite) TestPostShowsPublished() {
	s.store.add("p1", alice.ID, "Hello", true)

	page := NewPost(s.ctx, s.store, s.sessions, nil)
	defer page.Close()
	page.Show("p1")
	page.Wait()

	st := page.State()
	s.Require().Equal(view.Ready, st.Status)
	s.Equal("Hello", st.Data.Post.Title)
	s.False(st.Data.CanEdit)
}

func (s *PagesSuite) TestPostHiddenDraftLooksMissing() {
	s.store.add("d1", alice.ID, "Draft", false)
	s.signIn(bob)

	page := NewPost(s.ctx, s.store, s.sessions, nil)
	defer page.Close()

	page.Show("d1")
	page.Wait()
	hidden := page.State()

	page.Show("missing")
	page.Wait()
	missing := page.State()

	s.Equal(view.Error, hidden.Status)
	s.ErrorIs(hidden.Err, clienterr.ErrNotFound)
	s.Equal(missing.Message, hidden.Message)
	s.Equal(missing.Err, hidden.Err)
}

func (s *PagesSuite) TestPostReevaluatesOnIdentityChange() {
	s.store.add("d1", alice.ID, "Draft", false)
	s.signIn(alice)

	page := NewPost(s.ctx, s.store, s.sessions, nil)
	defer page.Close()
	page.Show("d1")
	page.Wait()
	s.Require().Equal(view.Ready, page.State().Status)
	s.True(page.State().Data.CanEdit)

	s.writer.SetIdentity(nil)
	page.Wait()
	s.Equal(view.Error, page.State().Status)
	s.ErrorIs(page.State().Err, clienterr.ErrNotFound)
}

func (s *PagesSuite) TestPostNotLoadedUntilShown() {
	page := NewPost(s.ctx, s.store, s.sessions, nil)
	defer page.Close()

	s.signIn(alice)
	page.Wait()
	s.Equal(uint64(0), page.State().Attempt)
}

func (s *PagesSuite) TestPostStaleFetchIsNotCommitted() {
	s.store.add("p1", alice.ID, "First", true)
	s.store.add("p2", alice.ID, "Second", true)
	s.store.gate = make(chan struct{})

	page := NewPost(s.ctx, s.store, s.sessions, nil)
	defer page.Close()
	page.Show("p1")
	page.Show("p2")
	close(s.store.gate)
	page.Wait()

	st := page.State()
	s.Require().Equal(view.Ready, st.Status)
	s.Equal("Second", st.Data.Post.Title)
}

func (s *PagesSuite) TestPostClosedDuringFetch() {
	s.store.add("p1", alice.ID, "First", true)
	s.store.gate = make(chan struct{})

	calls := 0
	page := NewPost(s.ctx, s.store, s.sessions, func(view.State[PostView]) { calls++ })
	page.Show("p1")
	page.Close()
	close(s.store.gate)
	page.Wait()

	s.Equal(1, calls)
	s.Equal(view.Loading, page.State().Status)
}

// Profile

func (s *PagesSuite) TestProfileRequiresSession() {
	profile := NewProfile(s.ctx, s.store, s.sessions, nil)
	defer profile.Close()
	profile.Wait()

	s.Equal(view.Error, profile.State().Status)
	s.ErrorIs(profile.State().Err, clienterr.ErrUnauthorized)
}

func (s *PagesSuite) TestProfileListsOwnPostsNewestFirst() {
	s.store.add("a1", alice.ID, "Oldest", true)
	s.store.add("b1", bob.ID, "Bob's", true)
	s.store.add("a2", alice.ID, "Newest draft", false)
	s.signIn(alice)

	profile := NewProfile(s.ctx, s.store, s.sessions, nil)
	defer profile.Close()
	profile.Wait()

	st := profile.State()
	s.Require().Equal(view.Ready, st.Status)
	s.Equal(alice.ID, st.Data.Identity.ID)
	s.Require().Len(st.Data.Posts, 2)
	s.Equal(model.PostID("a2"), st.Data.Posts[0].Post.ID)
	s.Equal(model.PostID("a1"), st.Data.Posts[1].Post.ID)
	for _, p := range st.Data.Posts {
		s.True(p.CanEdit)
	}
}

func (s *PagesSuite) TestProfileFollowsIdentity() {
	s.store.add("a1", alice.ID, "Alice's", true)
	s.signIn(alice)

	profile := NewProfile(s.ctx, s.store, s.sessions, nil)
	defer profile.Close()
	profile.Wait()
	s.Len(profile.State().Data.Posts, 1)

	s.signIn(bob)
	profile.Wait()
	s.Equal(bob.ID, profile.State().Data.Identity.ID)
	s.Empty(profile.State().Data.Posts)
}

// Editor

func (s *PagesSuite) newEditor(opts ...EditorOption) *Editor {
	e, err := NewEditor(s.ctx, s.store, s.sessions, opts...)
	s.Require().NoError(err)
	s.T().Cleanup(e.Close)
	return e
}

func (s *PagesSuite) TestNewEditorRequiresSession() {
	_, err := NewEditor(s.ctx, s.store, s.sessions)
	s.ErrorIs(err, clienterr.ErrUnauthorized)
}

func (s *PagesSuite) TestEditorAssignsIDBeforeSaving() {
	s.signIn(alice)
	e := s.newEditor()

	s.NotEmpty(e.ID())
	s.False(e.Draft().Persisted)
	s.Nil(s.store.stored(e.ID()))

	e.SetTitle("Hello")
	post, err := e.Save(s.ctx)
	s.Require().NoError(err)
	s.Equal(e.ID(), post.ID)
	s.Equal(alice.ID, post.AuthorID)
	s.True(e.Draft().Persisted)

	// Later saves patch the same post
	e.SetContent("<p>body</p>")
	_, err = e.Save(s.ctx)
	s.Require().NoError(err)
	inserts, updates := s.store.counts()
	s.Equal(1, inserts)
	s.Equal(1, updates)
	s.Equal("<p>body</p>", s.store.stored(e.ID()).Content)
}

func (s *PagesSuite) TestEditorSaveRequiresTitle() {
	s.signIn(alice)
	e := s.newEditor()

	_, err := e.Save(s.ctx)
	var verr *clienterr.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("title", verr.Field)
}

func (s *PagesSuite) TestEditorAutosavesAfterEdits() {
	s.signIn(alice)
	e := s.newEditor(WithAutosaveDelay(20 * time.Millisecond))

	e.SetContent("no title yet")
	s.False(e.AutosavePending())

	e.SetTitle("Draft")
	e.SetContent("one")
	e.SetContent("two")
	s.True(e.AutosavePending())

	s.Eventually(func() bool {
		p := s.store.stored(e.ID())
		return p != nil && p.Content == "two"
	}, time.Second, 5*time.Millisecond)
	inserts, _ := s.store.counts()
	s.Equal(1, inserts)
	s.False(s.store.stored(e.ID()).IsPublished())
}

func (s *PagesSuite) TestEditorAutosaveErrorsAreReported() {
	s.signIn(alice)
	errs := make(chan error, 1)
	e := s.newEditor(WithAutosaveDelay(time.Millisecond), WithAutosaveErrors(func(err error) { errs <- err }))
	s.store.setFailure(clienterr.Provider("insert", errOffline))

	e.SetTitle("Draft")
	select {
	case err := <-errs:
		s.ErrorIs(err, errOffline)
	case <-time.After(time.Second):
		s.Fail("autosave error not reported")
	}
}

func (s *PagesSuite) TestEditorPublishAndUnpublish() {
	s.signIn(alice)
	e := s.newEditor()
	e.SetTitle("Going public")

	post, err := e.Publish(s.ctx)
	s.Require().NoError(err)
	s.True(post.IsPublished())
	s.True(e.Draft().Published)

	post, err = e.Unpublish(s.ctx)
	s.Require().NoError(err)
	s.False(post.IsPublished())
	s.False(e.Draft().Published)
}

func (s *PagesSuite) TestOpenEditorRequiresOwnership() {
	s.store.add("p1", alice.ID, "Alice's", true)
	s.store.add("d1", alice.ID, "Alice's draft", false)
	s.signIn(bob)

	_, err := OpenEditor(s.ctx, s.store, s.sessions, "p1")
	s.ErrorIs(err, clienterr.ErrNotFound)
	_, err = OpenEditor(s.ctx, s.store, s.sessions, "d1")
	s.ErrorIs(err, clienterr.ErrNotFound)
	_, err = OpenEditor(s.ctx, s.store, s.sessions, "missing")
	s.ErrorIs(err, clienterr.ErrNotFound)
}

func (s *PagesSuite) TestOpenEditorLoadsDraft() {
	s.store.add("d1", alice.ID, "Alice's draft", false)
	s.signIn(alice)

	e, err := OpenEditor(s.ctx, s.store, s.sessions, "d1")
	s.Require().NoError(err)
	defer e.Close()

	d := e.Draft()
	s.Equal(model.PostID("d1"), d.ID)
	s.Equal("Alice's draft", d.Title)
	s.True(d.Persisted)
	s.False(d.Published)
}

func (s *PagesSuite) TestEditorDelete() {
	s.signIn(alice)
	e := s.newEditor(WithAutosaveDelay(time.Hour))
	e.SetTitle("Short lived")
	_, err := e.Save(s.ctx)
	s.Require().NoError(err)

	e.SetContent("pending")
	s.Require().NoError(e.Delete(s.ctx))
	s.False(e.AutosavePending())
	s.Nil(s.store.stored(e.ID()))
}

func (s *PagesSuite) TestEditorDeleteUnsavedDraft() {
	s.signIn(alice)
	e := s.newEditor(WithAutosaveDelay(time.Hour))
	e.SetTitle("Never saved")

	s.Require().NoError(e.Delete(s.ctx))
	s.False(e.AutosavePending())
	inserts, _ := s.store.counts()
	s.Equal(0, inserts)
}
