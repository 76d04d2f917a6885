package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quill/internal/model"
)

func alice() *model.Identity {
	return &model.Identity{ID: "alice", DisplayName: "Alice"}
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.State
	}
	return out
}

func TestStartsRestoring(t *testing.T) {
	store, _ := New()

	snap := store.Snapshot()
	assert.Equal(t, Restoring, snap.State)
	assert.False(t, snap.Settled())
	assert.Nil(t, store.CurrentIdentity())

	select {
	case <-store.Restored():
		t.Fatal("restored before any transition")
	default:
	}
}

func TestRestoreToAnonymousIsATransition(t *testing.T) {
	store, writer := New()
	rec := &recorder{}
	store.Subscribe(rec.listen)

	assert.True(t, writer.SetIdentity(nil))
	assert.Equal(t, []State{Anonymous}, rec.states())

	_, ok := <-store.Restored()
	assert.False(t, ok, "Restored channel should be closed")
}

func TestEveryListenerSeesEveryTransitionInOrder(t *testing.T) {
	store, writer := New()
	first, second := &recorder{}, &recorder{}
	store.Subscribe(first.listen)
	store.Subscribe(second.listen)

	writer.SetIdentity(alice())
	writer.SetIdentity(nil)
	writer.SetIdentity(alice())

	want := []State{Authenticated, Anonymous, Authenticated}
	assert.Equal(t, want, first.states())
	assert.Equal(t, want, second.states())

	for i, snap := range first.snaps {
		assert.Equal(t, uint64(i+1), snap.Seq)
	}
}

func TestSameValueIsNotATransition(t *testing.T) {
	store, writer := New()
	rec := &recorder{}
	store.Subscribe(rec.listen)

	require.True(t, writer.SetIdentity(alice()))
	assert.False(t, writer.SetIdentity(alice()))
	assert.Len(t, rec.snaps, 1)

	// A profile change is a transition
	renamed := alice()
	renamed.DisplayName = "Alice L."
	assert.True(t, writer.SetIdentity(renamed))
	assert.Len(t, rec.snaps, 2)
	assert.Equal(t, "Alice L.", store.CurrentIdentity().DisplayName)
}

func TestCurrentIdentityIsVisibleToListeners(t *testing.T) {
	store, writer := New()
	var seen *model.Identity
	store.Subscribe(func(Snapshot) {
		seen = store.CurrentIdentity()
	})

	writer.SetIdentity(alice())
	require.NotNil(t, seen)
	assert.Equal(t, model.IdentityID("alice"), seen.ID)
}

func TestCallersCannotMutateStoredIdentity(t *testing.T) {
	store, writer := New()
	identity := alice()
	writer.SetIdentity(identity)

	identity.DisplayName = "changed"
	store.CurrentIdentity().DisplayName = "changed again"

	assert.Equal(t, "Alice", store.CurrentIdentity().DisplayName)
}

func TestUnsubscribe(t *testing.T) {
	store, writer := New()
	rec := &recorder{}
	unsubscribe := store.Subscribe(rec.listen)

	writer.SetIdentity(alice())
	unsubscribe()
	unsubscribe() // idempotent
	writer.SetIdentity(nil)

	assert.Equal(t, []State{Authenticated}, rec.states())
}

func TestUnsubscribeFromInsideListener(t *testing.T) {
	store, writer := New()
	calls := 0
	var unsubscribe func()
	unsubscribe = store.Subscribe(func(Snapshot) {
		calls++
		unsubscribe()
	})
	other := &recorder{}
	store.Subscribe(other.listen)

	writer.SetIdentity(alice())
	writer.SetIdentity(nil)

	assert.Equal(t, 1, calls)
	assert.Len(t, other.snaps, 2)
}

func TestWaitRestored(t *testing.T) {
	store, writer := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		writer.SetIdentity(alice())
	}()

	snap, err := store.WaitRestored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, model.IdentityID("alice"), snap.Identity.ID)
}

func TestWaitRestoredHonoursContext(t *testing.T) {
	store, _ := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := store.WaitRestored(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	store, writer := New()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = store.Snapshot()
				_ = store.CurrentIdentity()
			}
		}()
	}
	for i := range 100 {
		if i%2 == 0 {
			writer.SetIdentity(alice())
		} else {
			writer.SetIdentity(nil)
		}
	}
	wg.Wait()
	assert.Equal(t, uint64(100), store.Snapshot().Seq)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "restoring", Restoring.String())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
