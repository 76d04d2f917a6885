package cli

import (
	"context"
	"fmt"

	"github.com/mcoot/quill/internal/client/gateway"
	"github.com/mcoot/quill/internal/client/routeguard"
	"github.com/mcoot/quill/internal/client/session"
)

// core is the client session machinery for one command run
type core struct {
	store   *session.Store
	gateway *gateway.Gateway
	guard   *routeguard.Guard
}

// startCore restores the persisted session and waits until it settles
func startCore(ctx context.Context) (*core, error) {
	store, writer := session.New()
	gw := gateway.New(client, writer, gateway.WithTimeout(cfg.Timeout), gateway.WithLogger(logger))
	gw.Start(ctx)

	if _, err := store.WaitRestored(ctx); err != nil {
		gw.Stop()
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return &core{
		store:   store,
		gateway: gw,
		guard:   routeguard.New(store),
	}, nil
}

func (c *core) Close() {
	c.gateway.Stop()
}

// RedirectError is returned when a command needs a session the user doesn't have
type RedirectError struct {
	Target string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("you need to sign in first (redirected to %s); run: quill auth signin <email>", e.Target)
}

// enter authorizes the route for the current session
func (c *core) enter(ctx context.Context, path string) error {
	decision, err := c.guard.Resolve(ctx, routeguard.Lookup(path))
	if err != nil {
		return err
	}
	if decision.Action == routeguard.Redirect {
		return &RedirectError{Target: decision.Target}
	}
	return nil
}

// withCore runs fn with a started core
func withCore(ctx context.Context, fn func(*core) error) error {
	c, err := startCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// timeout bounds a single page load or editor action
func timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.Timeout)
}
