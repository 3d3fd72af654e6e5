package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ytmp3server/internal/core/domain"
	"ytmp3server/internal/core/ports"
	"ytmp3server/internal/registry"
)

// History mirrors registry updates into a persistent store.
type History struct {
	reg    *registry.Registry
	store  ports.TaskHistory
	logger *log.Logger

	// mu orders saves against deletes so a late update cannot bring back an
	// evicted task.
	mu sync.Mutex
}

// AttachHistory subscribes the store to reg and restores the tasks it holds.
// Tasks that were still running when they were saved come back failed. It
// returns the number of restored tasks.
func AttachHistory(ctx context.Context, reg *registry.Registry, store ports.TaskHistory, logger *log.Logger) (*History, int, error) {
	h := &History{reg: reg, store: store, logger: logger}

	saved, err := store.LoadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load task history: %w", err)
	}

	// Subscribe first so interrupted tasks are written back in their failed state.
	reg.Subscribe(h.save)
	restored := reg.Restore(saved)
	logger.Printf("Restored %d of %d saved tasks", restored, len(saved))
	return h, restored, nil
}

// Forget deletes an evicted task from the store.
func (h *History) Forget(taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Delete(context.Background(), taskID); err != nil {
		h.logger.Printf("[TASK %s] WARN: history delete failed: %v", taskID, err)
	}
}

func (h *History) save(task domain.Task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.reg.GetTask(task.ID); !ok {
		return
	}
	if err := h.store.Save(context.Background(), task); err != nil {
		h.logger.Printf("[TASK %s] WARN: history save failed: %v", task.ID, err)
	}
}
