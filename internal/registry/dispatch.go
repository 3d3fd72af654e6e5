package registry

import (
	"sync"

	"ytmp3server/internal/core/domain"
)

// subscriber delivers snapshots to one observer in the order they were
// queued. Queuing never blocks; a drain goroutine runs only while the queue
// is non-empty.
type subscriber struct {
	fn Observer

	mu       sync.Mutex
	idle     *sync.Cond
	queue    []domain.Task
	draining bool
}

func newSubscriber(fn Observer) *subscriber {
	s := &subscriber{fn: fn}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber) push(snap domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, snap)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
}

func (s *subscriber) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.queue = nil
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = domain.Task{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.fn(next)
	}
}

// wait blocks until every queued snapshot has been delivered.
func (s *subscriber) wait() {
	s.mu.Lock()
	for s.draining {
		s.idle.Wait()
	}
	s.mu.Unlock()
}
