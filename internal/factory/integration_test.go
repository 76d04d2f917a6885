package factory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quill/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) signUp(email string) *model.Identity {
	result, err := s.app.AuthService.SignUp(s.ctx, email, "password123")
	s.Require().NoError(err)
	s.Require().NotNil(result.Session)
	return &result.Session.Identity
}

// Test: an author drafts, publishes and deletes a post while another
// identity only ever sees what is published
func (s *IntegrationSuite) TestDraftPublishFlow() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")

	draft, err := s.app.PostService.Create(s.ctx, alice, model.PostInput{Title: "Work in progress"})
	s.Require().NoError(err)

	// Bob cannot see the draft, and the error is the same as for a missing post
	_, err = s.app.PostService.Get(s.ctx, bob, draft.ID)
	s.ErrorIs(err, model.ErrPostNotFound)

	feed, err := s.app.PostService.List(s.ctx, bob, model.PostQuery{})
	s.Require().NoError(err)
	s.Empty(feed)

	_, err = s.app.PostService.Publish(s.ctx, alice, draft.ID)
	s.Require().NoError(err)

	feed, err = s.app.PostService.List(s.ctx, bob, model.PostQuery{})
	s.Require().NoError(err)
	s.Require().Len(feed, 1)
	s.Equal(draft.ID, feed[0].ID)

	// Bob still can't delete it
	s.ErrorIs(s.app.PostService.Delete(s.ctx, bob, draft.ID), model.ErrPostNotFound)
	s.NoError(s.app.PostService.Delete(s.ctx, alice, draft.ID))
}

// Test: signing out one device leaves the other session valid
func (s *IntegrationSuite) TestLocalSignOutKeepsOtherDevice() {
	_, err := s.app.AuthService.SignUp(s.ctx, "carol@example.com", "password123")
	s.Require().NoError(err)
	laptop, err := s.app.AuthService.SignIn(s.ctx, "carol@example.com", "password123")
	s.Require().NoError(err)
	phone, err := s.app.AuthService.SignIn(s.ctx, "carol@example.com", "password123")
	s.Require().NoError(err)

	s.Require().NoError(s.app.AuthService.SignOut(s.ctx, phone.Token, model.SignOutLocal))

	_, err = s.app.AuthService.Validate(s.ctx, phone.Token)
	s.Error(err)
	_, err = s.app.AuthService.Validate(s.ctx, laptop.Token)
	s.NoError(err)
}

// Test: the janitor expires sessions and records metrics
func (s *IntegrationSuite) TestExpiredSessionsAreCleaned() {
	s.signUp("dave@example.com")

	s.app.MockClock.Advance(8 * 24 * time.Hour)
	removed, err := s.app.AuthService.CleanExpiredSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)

	count, err := testutil.GatherAndCount(s.app.Registry, "quill_session_events_total")
	s.Require().NoError(err)
	s.Positive(count)
}

func (s *IntegrationSuite) TestMetricsAreRegistered() {
	s.signUp("erin@example.com")

	expected := `
# HELP quill_auth_attempts_total Sign-up, sign-in and sign-out attempts by result
# TYPE quill_auth_attempts_total counter
quill_auth_attempts_total{op="sign_up",result="ok"} 1
`
	s.NoError(testutil.GatherAndCompare(s.app.Registry, strings.NewReader(expected), "quill_auth_attempts_total"))
}
