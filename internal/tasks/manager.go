// Package tasks tracks running uploads, bounds how many run at once and lets
// their owners cancel them.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotOwner     = errors.New("task belongs to another user")
)

type Task struct {
	ID      string
	OwnerID int64
	Name    string
	Started time.Time

	cancel context.CancelFunc
}

// ShortID is the prefix users type in /cancel.
func (t *Task) ShortID() string {
	if len(t.ID) < 8 {
		return t.ID
	}
	return t.ID[:8]
}

type Manager struct {
	sem     *semaphore.Weighted
	adminID int64

	mu    sync.Mutex
	tasks map[string]*Task
}

// NewManager allows limit uploads at once; adminID may cancel any task.
func NewManager(limit int, adminID int64) *Manager {
	if limit <= 0 {
		limit = 1
	}
	return &Manager{
		sem:     semaphore.NewWeighted(int64(limit)),
		adminID: adminID,
		tasks:   make(map[string]*Task),
	}
}

// Start waits for a free slot and registers a task. The returned context is
// cancelled by Cancel or Finish. Every started task must be finished.
func (m *Manager) Start(ctx context.Context, ownerID int64, name string) (*Task, context.Context, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("wait for upload slot: %w", err)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Started: time.Now(),
		cancel:  cancel,
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()
	return t, taskCtx, nil
}

func (m *Manager) Finish(id string) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	delete(m.tasks, id)
	m.mu.Unlock()

	if ok {
		t.cancel()
		m.sem.Release(1)
	}
}

// Cancel cancels the task whose id or short id is id, if userID owns it.
func (m *Manager) Cancel(id string, userID int64) (*Task, error) {
	t, ok := m.Get(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.OwnerID != userID && userID != m.adminID {
		return nil, ErrNotOwner
	}
	t.cancel()
	return t, nil
}

// Get looks a task up by full or short id.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return t, true
	}
	for _, t := range m.tasks {
		if t.ShortID() == id {
			return t, true
		}
	}
	return nil, false
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// List returns the running tasks, oldest first.
func (m *Manager) List() []*Task {
	m.mu.Lock()
	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}
