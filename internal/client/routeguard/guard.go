// Package routeguard decides whether a view that needs a signed-in user
// may be shown for the current session.
package routeguard

import (
	"context"
	"strings"

	"github.com/mcoot/quill/internal/client/session"
)

// DefaultLanding is the public route anonymous visitors are sent to
const DefaultLanding = "/"

// Route is a navigable view
type Route struct {
	Path      string
	Protected bool
}

// Routes of the blog. Paths with {id} match any single segment.
var (
	Home    = Route{Path: "/"}
	Post    = Route{Path: "/post/{id}"}
	Auth    = Route{Path: "/auth"}
	Profile = Route{Path: "/profile", Protected: true}
	Write   = Route{Path: "/write", Protected: true}
	Edit    = Route{Path: "/edit/{id}", Protected: true}
)

// Routes lists every known route
var Routes = []Route{Home, Post, Auth, Profile, Write, Edit}

// Lookup finds the route for a concrete path. Unknown paths are public.
func Lookup(path string) Route {
	for _, r := range Routes {
		if matches(r.Path, path) {
			return r
		}
	}
	return Route{Path: path}
}

func matches(pattern, path string) bool {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	ps := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(ps) {
		return false
	}
	for i := range pp {
		if strings.HasPrefix(pp[i], "{") && strings.HasSuffix(pp[i], "}") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if pp[i] != ps[i] {
			return false
		}
	}
	return true
}

// Action is what the caller should do with a route
type Action int

const (
	Allow Action = iota
	Redirect
	// Suspend means render nothing yet: the session is still being restored
	Suspend
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Suspend:
		return "suspend"
	default:
		return "unknown"
	}
}

// Decision is the outcome of authorizing a route
type Decision struct {
	Action Action
	Target string // set for Redirect
}

// Guard authorizes routes against a session store
type Guard struct {
	store   *session.Store
	landing string
}

// Option configures a Guard
type Option func(*Guard)

// WithLanding overrides DefaultLanding
func WithLanding(path string) Option {
	return func(g *Guard) { g.landing = path }
}

// New creates a Guard
func New(store *session.Store, opts ...Option) *Guard {
	g := &Guard{store: store, landing: DefaultLanding}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Landing returns the redirect target for anonymous visitors
func (g *Guard) Landing() string {
	return g.landing
}

// Authorize is the pure decision for route under snap
func (g *Guard) Authorize(route Route, snap session.Snapshot) Decision {
	if !route.Protected {
		return Decision{Action: Allow}
	}
	switch snap.State {
	case session.Restoring:
		return Decision{Action: Suspend}
	case session.Anonymous:
		return Decision{Action: Redirect, Target: g.landing}
	default:
		return Decision{Action: Allow}
	}
}

// Check authorizes route against the current session without waiting
func (g *Guard) Check(route Route) Decision {
	return g.Authorize(route, g.store.Snapshot())
}

// Resolve waits for the session to be restored and returns a settled
// decision, never Suspend
func (g *Guard) Resolve(ctx context.Context, route Route) (Decision, error) {
	if !route.Protected {
		return Decision{Action: Allow}, nil
	}
	snap, err := g.store.WaitRestored(ctx)
	if err != nil {
		return Decision{}, err
	}
	return g.Authorize(route, snap), nil
}

// Watch calls fn with a fresh decision for route on every session
// transition until the returned stop function is called
func (g *Guard) Watch(route Route, fn func(Decision)) (stop func()) {
	return g.store.Subscribe(func(snap session.Snapshot) {
		fn(g.Authorize(route, snap))
	})
}
