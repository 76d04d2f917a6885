package view

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SaveFunc persists a draft. It should honour ctx cancellation.
type SaveFunc func(ctx context.Context) error

type autosaveTask struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

// Autosaver runs delayed saves keyed by draft id. Scheduling a save for an
// id that already has one pending stops the old timer, and cancels the
// old save if it had already started.
type Autosaver struct {
	delay   time.Duration
	parent  context.Context
	onError func(id string, err error)
	logger  *slog.Logger

	mu    sync.Mutex
	tasks map[string]*autosaveTask
	wg    sync.WaitGroup
}

// NewAutosaver creates an Autosaver. onError may be nil.
func NewAutosaver(ctx context.Context, delay time.Duration, onError func(id string, err error), logger *slog.Logger) *Autosaver {
	return &Autosaver{
		delay:   delay,
		parent:  ctx,
		onError: onError,
		logger:  logger,
		tasks:   make(map[string]*autosaveTask),
	}
}

// Schedule runs save after the autosave delay unless superseded first
func (a *Autosaver) Schedule(id string, save SaveFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked(id)

	ctx, cancel := context.WithCancel(a.parent)
	task := &autosaveTask{cancel: cancel}
	a.wg.Add(1)
	task.timer = time.AfterFunc(a.delay, func() {
		defer a.wg.Done()
		defer a.finish(id, task)

		if ctx.Err() != nil {
			return
		}
		if err := save(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("autosave failed", slog.String("draft_id", id), slog.String("error", err.Error()))
			if a.onError != nil {
				a.onError(id, err)
			}
		}
	})
	a.tasks[id] = task
}

// Cancel stops the pending or running save for id
func (a *Autosaver) Cancel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked(id)
}

// Pending reports whether a save for id is scheduled or running
func (a *Autosaver) Pending(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.tasks[id]
	return ok
}

// Stop cancels everything and waits for running saves to return
func (a *Autosaver) Stop() {
	a.mu.Lock()
	for id := range a.tasks {
		a.stopLocked(id)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Autosaver) stopLocked(id string) {
	task, ok := a.tasks[id]
	if !ok {
		return
	}
	delete(a.tasks, id)
	task.cancel()
	if task.timer.Stop() {
		// Never fired, so its callback won't release the wait group
		a.wg.Done()
	}
}

func (a *Autosaver) finish(id string, task *autosaveTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	task.cancel()
	if a.tasks[id] == task {
		delete(a.tasks, id)
	}
}
