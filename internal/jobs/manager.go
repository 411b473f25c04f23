package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNoRunningBatch is returned when cancel is requested while idle.
var ErrNoRunningBatch = errors.New("no running batch")

// BatchState is a snapshot of the manager's active batch.
type BatchState struct {
	ID      string
	Total   int
	Running bool
}

// Manager tracks the single allowed active batch and owns its cancel
// function. The GUI submits batches asynchronously, so cancellation has
// to reach a goroutine the caller no longer holds.
type Manager struct {
	mu      sync.RWMutex
	current BatchState
	cancel  context.CancelFunc
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{}
}

// Begin registers a new active batch and returns a context the batch
// must run under. Fails if a batch is already active.
func (m *Manager) Begin(ctx context.Context, batchID string, total int) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Running {
		return nil, ErrBatchAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.current = BatchState{ID: batchID, Total: total, Running: true}
	m.cancel = cancel
	return ctx, nil
}

// Finish marks the active batch as done and releases its context.
func (m *Manager) Finish(batchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID != batchID {
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.current.Running = false
}

// Cancel stops the active batch. In-flight ffmpeg processes observe the
// context and exit; queued jobs never start.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.Running || m.cancel == nil {
		return ErrNoRunningBatch
	}
	m.cancel()
	return nil
}

// Current returns a snapshot of the active batch.
func (m *Manager) Current() BatchState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a batch is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Running
}
