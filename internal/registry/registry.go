// Package registry owns task identity and storage. It is the only component
// shared between concurrent extractions: every task mutation goes through it
// under a single lock, and callers only ever receive copies. Observers are
// notified asynchronously so a slow observer never holds that lock.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"ytmp3server/internal/core/domain"
)

// ErrTaskFinished is returned when a mutation targets a completed or failed task.
var ErrTaskFinished = errors.New("task already finished")

// InterruptedMessage is recorded on restored tasks that were still running.
const InterruptedMessage = "interrupted by restart"

// Observer receives a task snapshot after every mutation. Each observer sees
// snapshots in mutation order, on its own goroutine.
type Observer func(domain.Task)

// Registry is an in-memory task store keyed by id.
type Registry struct {
	mu         sync.RWMutex
	tasks      map[string]*domain.Task
	order      []string
	cancels    map[string]context.CancelFunc
	observers  []*subscriber
	defaultDir string
	newID      func() string
}

// New creates a registry writing to defaultDir when CreateTask gets no directory.
func New(defaultDir string) *Registry {
	return &Registry{
		tasks:      make(map[string]*domain.Task),
		cancels:    make(map[string]context.CancelFunc),
		defaultDir: defaultDir,
		newID:      uuid.NewString,
	}
}

// DefaultDir returns the directory used when none is requested.
func (r *Registry) DefaultDir() string {
	return r.defaultDir
}

// Subscribe registers an observer for task updates.
func (r *Registry) Subscribe(fn Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, newSubscriber(fn))
	r.mu.Unlock()
}

// Flush blocks until every observer has received all snapshots queued so far.
func (r *Registry) Flush() {
	r.mu.RLock()
	observers := r.observers
	r.mu.RUnlock()
	for _, s := range observers {
		s.wait()
	}
}

// CreateTask stores a new pending task. It never touches the filesystem.
func (r *Registry) CreateTask(video domain.VideoMetadata, format domain.AudioFormat, outputDir string) domain.Task {
	if outputDir == "" {
		outputDir = r.defaultDir
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newID()
	for _, exists := r.tasks[id]; exists; _, exists = r.tasks[id] {
		id = r.newID()
	}
	task := domain.NewTask(id, video, format, outputDir)
	r.tasks[id] = task
	r.order = append(r.order, id)
	snap := snapshot(task)
	r.notify(snap)
	return snap
}

// GetTask returns a copy of the task with the given id.
func (r *Registry) GetTask(id string) (domain.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return snapshot(task), true
}

// ListAll returns every task in creation order.
func (r *Registry) ListAll() []domain.Task {
	return r.list(func(*domain.Task) bool { return true })
}

// ListActive returns tasks that are downloading or converting.
func (r *Registry) ListActive() []domain.Task {
	return r.list(func(t *domain.Task) bool { return t.Status.IsActive() })
}

func (r *Registry) list(keep func(*domain.Task) bool) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.order))
	for _, id := range r.order {
		if t := r.tasks[id]; keep(t) {
			out = append(out, snapshot(t))
		}
	}
	return out
}

// Len returns the number of stored tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// UpdateStatus sets the status of a task that has not finished yet.
func (r *Registry) UpdateStatus(id string, status domain.Status) error {
	return r.mutate(id, func(t *domain.Task) { t.UpdateStatus(status) })
}

// UpdateProgress clamps and stores progress on a task that has not finished yet.
func (r *Registry) UpdateProgress(id string, progress int) error {
	return r.mutate(id, func(t *domain.Task) { t.UpdateProgress(progress) })
}

// SetError fails a task that has not finished yet.
func (r *Registry) SetError(id, message string) error {
	return r.mutate(id, func(t *domain.Task) { t.SetError(message) })
}

func (r *Registry) mutate(id string, fn func(*domain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return ErrTaskFinished
	}
	fn(task)
	if task.Status.IsTerminal() {
		delete(r.cancels, id)
	}
	r.notify(snapshot(task))
	return nil
}

// Attach registers the cancel func of the extraction driving task id.
func (r *Registry) Attach(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; ok {
		r.cancels[id] = cancel
	}
}

// Detach forgets the cancel func of task id.
func (r *Registry) Detach(id string) {
	r.mu.Lock()
	delete(r.cancels, id)
	r.mu.Unlock()
}

// Cancel fails an active task and interrupts its extraction. It reports
// false for unknown tasks and for tasks that are pending or finished.
func (r *Registry) Cancel(id string) bool {
	return r.CancelTask(id) == nil
}

// CancelTask is Cancel with the refusal reason: domain.ErrTaskNotFound or
// domain.ErrCancelRefused.
func (r *Registry) CancelTask(id string) error {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	if !task.Status.IsActive() {
		r.mu.Unlock()
		return domain.ErrCancelRefused
	}
	task.SetError(domain.CancelledMessage)
	cancel := r.cancels[id]
	delete(r.cancels, id)
	r.notify(snapshot(task))
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Restore loads previously persisted tasks. Tasks that had not finished are
// failed with InterruptedMessage. Ids already present are skipped. It returns
// the number of tasks added.
func (r *Registry) Restore(tasks []domain.Task) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for i := range tasks {
		if tasks[i].ID == "" {
			continue
		}
		if _, exists := r.tasks[tasks[i].ID]; exists {
			continue
		}
		task := snapshot(&tasks[i])
		if !task.Status.IsTerminal() {
			task.SetError(InterruptedMessage)
			r.notify(snapshot(&task))
		}
		r.tasks[task.ID] = &task
		r.order = append(r.order, task.ID)
		added++
	}
	return added
}

// evict removes a finished task. Active and pending tasks are never evicted.
func (r *Registry) evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || !task.Status.IsTerminal() {
		return false
	}
	delete(r.tasks, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// notify queues snap for every observer. Callers hold mu, which fixes the
// delivery order to the mutation order.
func (r *Registry) notify(snap domain.Task) {
	for _, s := range r.observers {
		s.push(snap)
	}
}

func snapshot(t *domain.Task) domain.Task {
	c := *t
	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}
	return c
}
