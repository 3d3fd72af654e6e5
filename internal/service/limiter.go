package service

import "context"

// semaphore is a buffered-channel admission gate. A nil semaphore admits
// everything.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(limit int) *semaphore {
	if limit <= 0 {
		return nil
	}
	return &semaphore{slots: make(chan struct{}, limit)}
}

func (s *semaphore) acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	if s == nil {
		return
	}
	<-s.slots
}

// inUse returns the number of held slots.
func (s *semaphore) inUse() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Capacity reports running extractions and the configured limit (0 when
// unlimited).
func (o *Orchestrator) Capacity() (running, limit int) {
	if o.slots == nil {
		return len(o.registry.ListActive()), 0
	}
	return o.slots.inUse(), cap(o.slots.slots)
}
