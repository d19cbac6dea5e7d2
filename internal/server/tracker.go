package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/panicerr"
)

// Entry is the tracked state of one submitted task.
type Entry struct {
	Task    *orchestrator.Task   `json:"task"`
	Result  *orchestrator.Result `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
	Running bool                 `json:"running"`
}

// Tracker runs submitted tasks in the background and retains their
// results for later retrieval.
type Tracker struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	wg      *conc.WaitGroup
}

func NewTracker(orch *orchestrator.Orchestrator, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		orch:    orch,
		logger:  logger,
		entries: make(map[string]*Entry),
		wg:      conc.NewWaitGroup(),
	}
}

// Submit starts the task in the background and returns a snapshot of
// its entry. The task keeps running after the submitting request ends;
// ctx should outlive it (the server's base context).
//
// The entry holds its own copy of the task: Execute writes the terminal
// status on the original, which only the background goroutine touches,
// and the finished copy is swapped in under the lock.
func (t *Tracker) Submit(ctx context.Context, task *orchestrator.Task) Entry {
	accepted := *task
	entry := &Entry{Task: &accepted, Running: true}
	t.mu.Lock()
	t.entries[task.ID] = entry
	t.order = append(t.order, task.ID)
	t.mu.Unlock()

	run := panicerr.Safe(func() error {
		result, err := t.orch.Execute(ctx, task)
		finished := *task
		t.mu.Lock()
		entry.Task = &finished
		entry.Result = result
		entry.Running = false
		if err != nil {
			entry.Error = err.Error()
		}
		t.mu.Unlock()
		return err
	})
	t.wg.Go(func() {
		if err := run(); err != nil {
			t.logger.Warn("task finished with error", "task_id", task.ID, "error", err)
		}
	})
	return Entry{Task: &accepted, Running: true}
}

// Get returns a snapshot of the entry for a task id.
func (t *Tracker) Get(id string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[id]
	if !ok {
		return Entry{}, cerr.NewError(cerr.NotFound, "unknown task: "+id, nil)
	}
	return *entry, nil
}

// List returns snapshots of all entries in submission order.
func (t *Tracker) List() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Wait blocks until every submitted task has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
