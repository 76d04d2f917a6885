// Package session holds the client's single source of truth for who is
// signed in. Readers get a *Store; the one write capability, *Writer, is
// handed to the session gateway.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mcoot/quill/internal/model"
)

// State is the phase of the client session
type State int

const (
	// Restoring is the initial state until the provider reports session state
	Restoring State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Restoring:
		return "restoring"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session at one transition
type Snapshot struct {
	State    State
	Identity *model.Identity // nil unless Authenticated
	// Seq increases by one on every transition
	Seq uint64
}

// Settled reports whether the session has left Restoring
func (s Snapshot) Settled() bool {
	return s.State != Restoring
}

// Listener receives every transition after it subscribed
type Listener func(Snapshot)

type subscription struct {
	id     uint64
	fn     Listener
	active atomic.Bool
}

// Store is the read side of the session
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	subs      []*subscription
	nextSubID uint64

	// notifyMu keeps transitions and their notifications in one order
	notifyMu sync.Mutex

	restored     chan struct{}
	restoredOnce sync.Once
}

// Writer is the write capability for a Store
type Writer struct {
	store *Store
}

// New creates a Store in the Restoring state and its Writer
func New() (*Store, *Writer) {
	s := &Store{
		restored: make(chan struct{}),
	}
	return s, &Writer{store: s}
}

// CurrentIdentity returns the signed-in identity, or nil
func (s *Store) CurrentIdentity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIdentity(s.snap.Identity)
}

// Snapshot returns the current session state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Identity = cloneIdentity(snap.Identity)
	return snap
}

// Subscribe registers a listener for future transitions. The listener is
// not called with the current state. The returned function unsubscribes;
// the listener is not called for any transition that starts after it returns.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	sub := &subscription{id: s.nextSubID, fn: fn}
	sub.active.Store(true)
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, other := range s.subs {
				if other.id == sub.id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Restored is closed once the session leaves Restoring
func (s *Store) Restored() <-chan struct{} {
	return s.restored
}

// WaitRestored blocks until the session has settled or ctx is done
func (s *Store) WaitRestored(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.restored:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// SetIdentity moves the session to Authenticated(identity), or Anonymous
// when identity is nil. Setting the current value again is not a transition.
// Listeners run synchronously, in subscription order, before SetIdentity
// returns. It reports whether a transition happened.
func (w *Writer) SetIdentity(identity *model.Identity) bool {
	s := w.store
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	next := Snapshot{State: Anonymous}
	if identity != nil {
		next = Snapshot{State: Authenticated, Identity: cloneIdentity(identity)}
	}

	s.mu.Lock()
	if s.snap.State == next.State && s.snap.Identity.Equal(next.Identity) {
		s.mu.Unlock()
		return false
	}
	next.Seq = s.snap.Seq + 1
	s.snap = next
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.restoredOnce.Do(func() { close(s.restored) })

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		snap := next
		snap.Identity = cloneIdentity(next.Identity)
		sub.fn(snap)
	}
	return true
}

// Store returns the Store this Writer updates
func (w *Writer) Store() *Store {
	return w.store
}

func cloneIdentity(identity *model.Identity) *model.Identity {
	if identity == nil {
		return nil
	}
	cp := *identity
	return &cp
}
