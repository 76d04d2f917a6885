// Package gateway is the only writer of the client session. It wraps an
// identity provider, normalises its failures into the clienterr taxonomy
// and funnels every session change through a single goroutine.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/validation"
)

// DefaultTimeout bounds every provider call
const DefaultTimeout = 10 * time.Second

type source int

const (
	sourceRestore source = iota
	sourcePush
	sourceCall
)

// update is a request to the pump to set the session
type update struct {
	identity *model.Identity
	source   source
	// applied is closed once the update was applied or discarded
	applied chan struct{}
}

// Option configures a Gateway
type Option func(*Gateway)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithLogger sets the gateway logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// Gateway exposes sign-up, sign-in and sign-out and keeps the session
// store in step with the provider. Concurrent calls are applied in the
// order their provider calls resolve, so the last one to resolve wins.
// Store listeners run on the pump and must not call back into the Gateway.
type Gateway struct {
	provider Provider
	writer   *session.Writer
	validate *validation.Validator
	timeout  time.Duration
	logger   *slog.Logger

	updates chan update
	done    chan struct{}

	mu          sync.Mutex
	started     bool
	stopped     bool
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a Gateway. It does nothing until Start.
func New(provider Provider, writer *session.Writer, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		writer:   writer,
		validate: validation.New(),
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		updates:  make(chan update),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(slog.String("component", "gateway"))
	return g
}

// Start subscribes to provider pushes and restores the persisted session.
// It returns immediately; the store leaves Restoring once the provider
// answers, or as Anonymous if it fails or times out.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started || g.stopped {
		// A stopped gateway never restarts; Stop has settled the store
		g.mu.Unlock()
		return
	}
	g.started = true
	ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go g.run()

	g.unsubscribe = g.provider.OnSessionChange(func(c Change) {
		if err := g.submit(update{identity: c.Identity, source: sourcePush}); err != nil {
			g.logger.Debug("dropping session change after stop")
		}
	})
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.restore(ctx)
	}()
}

// Stop unsubscribes from the provider and stops the pump. Later calls fail
// with clienterr.ErrStopped, and a later Start does nothing.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	unsubscribe, cancel := g.unsubscribe, g.cancel
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	close(g.done)
	g.wg.Wait()

	// The pump is gone, so this is the only writer left. A restore that
	// never landed leaves the session signed out rather than Restoring.
	if g.writer.Store().Snapshot().State == session.Restoring {
		g.logger.Debug("stopped before restore completed, continuing signed out")
		g.writer.SetIdentity(nil)
	}
}

// run is the pump: the only goroutine that writes to the session store
func (g *Gateway) run() {
	defer g.wg.Done()
	changed := false

	for {
		select {
		case u := <-g.updates:
			if u.source == sourceRestore && changed {
				// A push or call already settled the session
				g.logger.Debug("discarding stale restore result")
			} else {
				changed = true
				g.writer.SetIdentity(u.identity)
			}
			if u.applied != nil {
				close(u.applied)
			}
		case <-g.done:
			return
		}
	}
}

// submit hands an update to the pump and waits until it is applied
func (g *Gateway) submit(u update) error {
	u.applied = make(chan struct{})
	select {
	case g.updates <- u:
	case <-g.done:
		return clienterr.ErrStopped
	}
	select {
	case <-u.applied:
		return nil
	case <-g.done:
		return clienterr.ErrStopped
	}
}

func (g *Gateway) restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	identity, err := g.provider.GetSession(ctx)
	if err != nil {
		g.logger.Warn("session restore failed, continuing signed out", slog.String("error", err.Error()))
		identity = nil
	}
	if err := g.submit(update{identity: identity, source: sourceRestore}); err != nil {
		g.logger.Debug("gateway stopped before restore completed")
	}
}

func (g *Gateway) running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started && !g.stopped
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type newCredentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// SignUp creates an account. If the provider opens a session the store is
// Authenticated before SignUp returns; if confirmation is required the
// session is left alone.
func (g *Gateway) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	const op = "sign_up"
	if err := g.checkInput(newCredentials{Email: email, Password: password}); err != nil {
		return nil, err
	}
	if !g.running() {
		return nil, clienterr.Provider(op, clienterr.ErrStopped)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, g.fail(op, err)
	}
	if !result.ConfirmationRequired && result.Identity != nil {
		if err := g.submit(update{identity: result.Identity, source: sourceCall}); err != nil {
			return nil, clienterr.Provider(op, err)
		}
	}
	return result, nil
}

// SignIn authenticates. On success the store is Authenticated before
// SignIn returns.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	const op = "sign_in"
	if err := g.checkInput(credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}
	if !g.running() {
		return nil, clienterr.Provider(op, clienterr.ErrStopped)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	identity, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, g.fail(op, err)
	}
	if err := g.submit(update{identity: identity, source: sourceCall}); err != nil {
		return nil, clienterr.Provider(op, err)
	}
	return identity, nil
}

// SignOut ends the session. On success, including when already signed
// out, the store is Anonymous before SignOut returns.
func (g *Gateway) SignOut(ctx context.Context) error {
	const op = "sign_out"
	if !g.running() {
		return clienterr.Provider(op, clienterr.ErrStopped)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.provider.SignOut(ctx); err != nil {
		return g.fail(op, err)
	}
	if err := g.submit(update{identity: nil, source: sourceCall}); err != nil {
		return clienterr.Provider(op, err)
	}
	return nil
}

// UpdateProfile edits the signed-in identity and pushes the result into the store
func (g *Gateway) UpdateProfile(ctx context.Context, profile model.ProfileUpdate) (*model.Identity, error) {
	const op = "update_profile"
	if err := g.checkInput(profile); err != nil {
		return nil, err
	}
	if !g.running() {
		return nil, clienterr.Provider(op, clienterr.ErrStopped)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	identity, err := g.provider.UpdateProfile(ctx, profile)
	if err != nil {
		return nil, g.fail(op, err)
	}
	if err := g.submit(update{identity: identity, source: sourceCall}); err != nil {
		return nil, clienterr.Provider(op, err)
	}
	return identity, nil
}

// checkInput validates v locally and reports the first failing field
func (g *Gateway) checkInput(v any) error {
	err := g.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return &clienterr.ValidationError{Field: verr.Fields[0].Field, Message: verr.Fields[0].Message}
	}
	return &clienterr.ValidationError{Message: err.Error()}
}

// fail normalises a provider failure. Failures are never retried.
func (g *Gateway) fail(op string, err error) error {
	out := clienterr.Provider(op, err)
	g.logger.Info("provider call failed", slog.String("op", op), slog.String("error", out.Error()))
	return out
}
