package registry

import (
	"sort"
	"time"

	"ytmp3server/internal/core/domain"
)

// Retention bounds how many finished tasks a registry keeps. The oldest
// finished tasks (by end time) are evicted first; pending and active tasks
// are never evicted.
type Retention struct {
	reg     *Registry
	limit   int
	onEvict func(id string)
}

// KeepLatest subscribes a retention policy to reg. A limit of zero or less
// leaves the registry unbounded and returns nil. onEvict may be nil.
func KeepLatest(reg *Registry, limit int, onEvict func(id string)) *Retention {
	if limit <= 0 {
		return nil
	}
	p := &Retention{reg: reg, limit: limit, onEvict: onEvict}
	reg.Subscribe(func(t domain.Task) {
		if t.Status.IsTerminal() {
			p.Apply()
		}
	})
	return p
}

// Apply evicts finished tasks beyond the limit and returns their ids.
func (p *Retention) Apply() []string {
	p.reg.mu.RLock()
	finished := make([]domain.Task, 0, len(p.reg.tasks))
	for _, id := range p.reg.order {
		if t := p.reg.tasks[id]; t.Status.IsTerminal() {
			finished = append(finished, snapshot(t))
		}
	}
	p.reg.mu.RUnlock()

	excess := len(finished) - p.limit
	if excess <= 0 {
		return nil
	}

	sort.SliceStable(finished, func(i, j int) bool {
		return endOf(finished[i]).Before(endOf(finished[j]))
	})

	var evicted []string
	for _, t := range finished[:excess] {
		if p.reg.evict(t.ID) {
			evicted = append(evicted, t.ID)
			if p.onEvict != nil {
				p.onEvict(t.ID)
			}
		}
	}
	return evicted
}

func endOf(t domain.Task) time.Time {
	if t.EndTime != nil {
		return *t.EndTime
	}
	return t.StartTime
}
