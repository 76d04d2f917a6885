package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/model"
)

// fakeProvider is a scriptable identity provider
type fakeProvider struct {
	mu        sync.Mutex
	listeners map[int]func(Change)
	nextID    int

	// session returned by GetSession; restoreGate blocks it when set
	session     *model.Identity
	restoreErr  error
	restoreGate chan struct{}

	// signIn results keyed by email; gates block a sign-in until closed
	accounts map[string]*model.Identity
	gates    map[string]chan struct{}

	signUpResult *SignUpResult
	signOutErr   error
	calls        []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		listeners: make(map[int]func(Change)),
		accounts:  make(map[string]*model.Identity),
		gates:     make(map[string]chan struct{}),
	}
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakeProvider) GetSession(ctx context.Context) (*model.Identity, error) {
	p.record("get_session")
	if p.restoreGate != nil {
		select {
		case <-p.restoreGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.session, p.restoreErr
}

func (p *fakeProvider) OnSessionChange(fn func(Change)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) push(c Change) {
	p.mu.Lock()
	fns := make([]func(Change), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (p *fakeProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string) (*SignUpResult, error) {
	p.record("sign_up")
	if p.signUpResult != nil {
		return p.signUpResult, nil
	}
	return &SignUpResult{Identity: &model.Identity{ID: model.IdentityID(email)}}, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	p.record("sign_in")
	p.mu.Lock()
	gate := p.gates[email]
	identity, ok := p.accounts[email]
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok || password != "secret123" {
		return nil, clienterr.ErrInvalidCredentials
	}
	return identity, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.record("sign_out")
	return p.signOutErr
}

func (p *fakeProvider) UpdateProfile(_ context.Context, update model.ProfileUpdate) (*model.Identity, error) {
	p.record("update_profile")
	identity := &model.Identity{ID: "alice", DisplayName: *update.DisplayName}
	return identity, nil
}

type GatewaySuite struct {
	suite.Suite
	provider *fakeProvider
	store    *session.Store
	gateway  *Gateway
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.provider = newFakeProvider()
	s.provider.accounts["alice@example.com"] = &model.Identity{ID: "alice", DisplayName: "Alice"}
	s.provider.accounts["bob@example.com"] = &model.Identity{ID: "bob", DisplayName: "Bob"}

	store, writer := session.New()
	s.store = store
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.gateway = New(s.provider, writer, WithTimeout(time.Second), WithLogger(logger))
}

func (s *GatewaySuite) TearDownTest() {
	s.gateway.Stop()
}

func (s *GatewaySuite) start() session.Snapshot {
	s.gateway.Start(context.Background())
	snap, err := s.store.WaitRestored(s.T().Context())
	s.Require().NoError(err)
	return snap
}

func (s *GatewaySuite) TestRestoreAnonymous() {
	snap := s.start()
	s.Equal(session.Anonymous, snap.State)
}

func (s *GatewaySuite) TestRestoreAuthenticated() {
	s.provider.session = &model.Identity{ID: "alice"}
	snap := s.start()
	s.Equal(session.Authenticated, snap.State)
	s.Equal(model.IdentityID("alice"), snap.Identity.ID)
}

func (s *GatewaySuite) TestRestoreFailureIsAnonymous() {
	s.provider.restoreErr = errors.New("unreachable")
	snap := s.start()
	s.Equal(session.Anonymous, snap.State)
}

func (s *GatewaySuite) TestRestoreTimeoutIsAnonymous() {
	s.provider.restoreGate = make(chan struct{})
	store, writer := session.New()
	s.store = store
	s.gateway = New(s.provider, writer, WithTimeout(20*time.Millisecond))

	snap := s.start()
	s.Equal(session.Anonymous, snap.State)
}

func (s *GatewaySuite) TestStaleRestoreIsDiscarded() {
	s.provider.session = &model.Identity{ID: "alice"}
	s.provider.restoreGate = make(chan struct{})
	s.gateway.Start(context.Background())

	// A push settles the session while restore is still in flight
	s.provider.push(Change{Identity: nil})
	s.Equal(session.Anonymous, s.store.Snapshot().State)

	close(s.provider.restoreGate)
	s.Eventually(func() bool {
		s.provider.mu.Lock()
		defer s.provider.mu.Unlock()
		return len(s.provider.calls) > 0
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	s.Equal(session.Anonymous, s.store.Snapshot().State)
	s.Equal(uint64(1), s.store.Snapshot().Seq)
}

func (s *GatewaySuite) TestSignInUpdatesStoreBeforeReturning() {
	s.start()

	identity, err := s.gateway.SignIn(context.Background(), "alice@example.com", "secret123")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("alice"), identity.ID)
	s.Equal(model.IdentityID("alice"), s.store.CurrentIdentity().ID)
}

func (s *GatewaySuite) TestSignInInvalidCredentials() {
	s.start()

	_, err := s.gateway.SignIn(context.Background(), "alice@example.com", "wrong")
	s.ErrorIs(err, clienterr.ErrInvalidCredentials)
	s.Nil(s.store.CurrentIdentity())
}

func (s *GatewaySuite) TestSignInValidation() {
	s.start()

	_, err := s.gateway.SignIn(context.Background(), "not-an-email", "secret123")
	var verr *clienterr.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("email", verr.Field)

	_, err = s.gateway.SignIn(context.Background(), "alice@example.com", "")
	s.Require().ErrorAs(err, &verr)
	s.Equal("password", verr.Field)

	// Rejected locally, the provider is never called
	s.NotContains(s.provider.calls, "sign_in")
}

func (s *GatewaySuite) TestSignInTimeoutIsProviderError() {
	s.provider.gates["alice@example.com"] = make(chan struct{})
	store, writer := session.New()
	s.store = store
	s.gateway = New(s.provider, writer, WithTimeout(20*time.Millisecond))
	s.start()

	_, err := s.gateway.SignIn(context.Background(), "alice@example.com", "secret123")
	var perr *clienterr.ProviderError
	s.Require().ErrorAs(err, &perr)
	s.Equal("sign_in", perr.Op)
	s.ErrorIs(err, clienterr.ErrTimeout)
	s.Nil(s.store.CurrentIdentity())
}

func (s *GatewaySuite) TestSignUpWithSessionAuthenticates() {
	s.start()

	result, err := s.gateway.SignUp(context.Background(), "carol@example.com", "secret123")
	s.Require().NoError(err)
	s.False(result.ConfirmationRequired)
	s.Equal(model.IdentityID("carol@example.com"), s.store.CurrentIdentity().ID)
}

func (s *GatewaySuite) TestSignUpRequiringConfirmationLeavesSession() {
	s.provider.signUpResult = &SignUpResult{
		Identity:             &model.Identity{ID: "carol"},
		ConfirmationRequired: true,
	}
	s.start()
	before := s.store.Snapshot()

	result, err := s.gateway.SignUp(context.Background(), "carol@example.com", "secret123")
	s.Require().NoError(err)
	s.True(result.ConfirmationRequired)
	s.Equal(before, s.store.Snapshot())
}

func (s *GatewaySuite) TestSignUpValidation() {
	s.start()

	_, err := s.gateway.SignUp(context.Background(), "carol@example.com", "short")
	var verr *clienterr.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("password", verr.Field)
	s.Contains(verr.Message, "8")
}

func (s *GatewaySuite) TestSignOut() {
	s.provider.session = &model.Identity{ID: "alice"}
	s.start()

	s.Require().NoError(s.gateway.SignOut(context.Background()))
	s.Equal(session.Anonymous, s.store.Snapshot().State)

	// Already signed out is still a success
	s.Require().NoError(s.gateway.SignOut(context.Background()))
	s.Equal(session.Anonymous, s.store.Snapshot().State)
}

func (s *GatewaySuite) TestSignOutFailureIsSurfacedVerbatim() {
	s.provider.session = &model.Identity{ID: "alice"}
	cause := errors.New("503 service unavailable")
	s.provider.signOutErr = cause
	s.start()

	err := s.gateway.SignOut(context.Background())
	s.ErrorIs(err, cause)
	var perr *clienterr.ProviderError
	s.ErrorAs(err, &perr)
	// Not retried
	count := 0
	for _, c := range s.provider.calls {
		if c == "sign_out" {
			count++
		}
	}
	s.Equal(1, count)
	s.Equal(session.Authenticated, s.store.Snapshot().State)
}

func (s *GatewaySuite) TestExternalSignOutPush() {
	s.provider.session = &model.Identity{ID: "alice"}
	s.start()

	s.provider.push(Change{Identity: nil})
	s.Equal(session.Anonymous, s.store.Snapshot().State)
}

func (s *GatewaySuite) TestUpdateProfile() {
	s.provider.session = &model.Identity{ID: "alice", DisplayName: "Alice"}
	s.start()

	name := "Alice L."
	identity, err := s.gateway.UpdateProfile(context.Background(), model.ProfileUpdate{DisplayName: &name})
	s.Require().NoError(err)
	s.Equal("Alice L.", identity.DisplayName)
	s.Equal("Alice L.", s.store.CurrentIdentity().DisplayName)

	empty := ""
	_, err = s.gateway.UpdateProfile(context.Background(), model.ProfileUpdate{DisplayName: &empty})
	var verr *clienterr.ValidationError
	s.ErrorAs(err, &verr)
}

func (s *GatewaySuite) TestLastResolvedWins() {
	s.start()
	aliceGate := make(chan struct{})
	s.provider.gates["alice@example.com"] = aliceGate

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.gateway.SignIn(context.Background(), "alice@example.com", "secret123")
		s.NoError(err)
	}()

	// Bob's sign-in resolves first, alice's later
	s.Eventually(func() bool {
		s.provider.mu.Lock()
		defer s.provider.mu.Unlock()
		return len(s.provider.calls) >= 2
	}, time.Second, 5*time.Millisecond)
	_, err := s.gateway.SignIn(context.Background(), "bob@example.com", "secret123")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("bob"), s.store.CurrentIdentity().ID)

	close(aliceGate)
	wg.Wait()
	s.Equal(model.IdentityID("alice"), s.store.CurrentIdentity().ID)
}

func (s *GatewaySuite) TestStopUnsubscribesAndRejectsCalls() {
	s.start()
	s.Equal(1, s.provider.listenerCount())

	s.gateway.Stop()
	s.gateway.Stop() // idempotent
	s.Equal(0, s.provider.listenerCount())

	_, err := s.gateway.SignIn(context.Background(), "alice@example.com", "secret123")
	s.ErrorIs(err, clienterr.ErrStopped)
}

func (s *GatewaySuite) TestStopDuringRestoreSettlesAnonymous() {
	s.provider.session = &model.Identity{ID: "alice", DisplayName: "Alice"}
	s.provider.restoreGate = make(chan struct{})
	s.gateway.Start(context.Background())
	s.Equal(session.Restoring, s.store.Snapshot().State)

	s.gateway.Stop()

	s.Equal(session.Anonymous, s.store.Snapshot().State)
	select {
	case <-s.store.Restored():
	default:
		s.Fail("store still restoring after stop")
	}
}

func TestStartAfterStopDoesNotHang(t *testing.T) {
	provider := newFakeProvider()
	store, writer := session.New()
	g := New(provider, writer, WithTimeout(time.Second))

	g.Stop()
	g.Start(context.Background())
	defer g.Stop()

	assert.Equal(t, 0, provider.listenerCount())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := store.WaitRestored(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Anonymous, snap.State)

	_, err = g.SignIn(context.Background(), "alice@example.com", "secret123")
	assert.ErrorIs(t, err, clienterr.ErrStopped)
}

func TestCallsBeforeStartFail(t *testing.T) {
	_, writer := session.New()
	g := New(newFakeProvider(), writer)

	err := g.SignOut(context.Background())
	var perr *clienterr.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, clienterr.ErrStopped)
}
