// Package view connects pages to asynchronous fetches with a consistent
// Loading / Error / Ready life cycle.
package view

import (
	"context"
	"sync"

	"github.com/mcoot/quill/internal/client/clienterr"
)

// Status is the render state of a binding
type Status int

const (
	Loading Status = iota
	Error
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// State is what a page renders. Data is only meaningful when Ready and
// Message only when Error.
type State[T any] struct {
	Status  Status
	Key     string
	Data    T
	Message string
	Err     error
	// Attempt counts Load calls; every attempt ends in exactly one terminal state
	Attempt uint64
}

// Fetch loads the data for key
type Fetch[T any] func(ctx context.Context, key string) (T, error)

// Binding owns the fetch life cycle of one page
type Binding[T any] struct {
	fetch    Fetch[T]
	onChange func(State[T])
	parent   context.Context

	// notifyMu orders state changes and their notifications
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   State[T]
	cancel  context.CancelFunc
	closed  bool
	running sync.WaitGroup
}

// NewBinding creates a binding in the Loading state. onChange may be nil;
// it runs synchronously on every state change and must not call Load or
// Close itself.
func NewBinding[T any](ctx context.Context, fetch Fetch[T], onChange func(State[T])) *Binding[T] {
	if onChange == nil {
		onChange = func(State[T]) {}
	}
	return &Binding[T]{
		fetch:    fetch,
		onChange: onChange,
		parent:   ctx,
	}
}

// State returns the current render state
func (b *Binding[T]) State() State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Load resets to Loading and fetches key. A fetch still in flight is
// cancelled and its result is never committed.
func (b *Binding[T]) Load(key string) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(b.parent)
	b.cancel = cancel
	var zero T
	b.state = State[T]{Status: Loading, Key: key, Data: zero, Attempt: b.state.Attempt + 1}
	attempt := b.state.Attempt
	loading := b.state
	b.running.Add(1)
	b.mu.Unlock()

	b.onChange(loading)

	go func() {
		defer b.running.Done()
		data, err := b.fetch(ctx, key)
		b.commit(attempt, data, err)
	}()
}

// Reload fetches the current key again
func (b *Binding[T]) Reload() {
	b.Load(b.State().Key)
}

func (b *Binding[T]) commit(attempt uint64, data T, err error) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if b.closed || attempt != b.state.Attempt {
		// Superseded or torn down
		b.mu.Unlock()
		return
	}
	next := State[T]{Status: Ready, Key: b.state.Key, Data: data, Attempt: attempt}
	if err != nil {
		var zero T
		next = State[T]{Status: Error, Key: b.state.Key, Data: zero, Message: clienterr.Message(err), Err: err, Attempt: attempt}
	}
	b.state = next
	b.mu.Unlock()

	b.onChange(next)
}

// Wait blocks until no fetch is in flight
func (b *Binding[T]) Wait() {
	b.running.Wait()
}

// Close cancels any fetch in flight. No state change happens after Close returns.
func (b *Binding[T]) Close() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
}
