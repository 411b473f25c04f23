package jobs

import (
	"context"
	"errors"
	"testing"
)

// TestManagerSingleActiveBatch verifies the second Begin is rejected.
func TestManagerSingleActiveBatch(t *testing.T) {
	m := NewManager()

	ctx, err := m.Begin(context.Background(), "batch-1", 3)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if ctx == nil {
		t.Fatal("Begin returned nil context")
	}

	if _, err := m.Begin(context.Background(), "batch-2", 1); !errors.Is(err, ErrBatchAlreadyRunning) {
		t.Fatalf("err = %v, want ErrBatchAlreadyRunning", err)
	}

	m.Finish("batch-1")
	if m.IsRunning() {
		t.Fatal("still running after Finish")
	}
	if _, err := m.Begin(context.Background(), "batch-2", 1); err != nil {
		t.Fatalf("Begin after Finish: %v", err)
	}
}

// TestManagerCancel verifies cancellation reaches the batch context.
func TestManagerCancel(t *testing.T) {
	m := NewManager()

	if err := m.Cancel(); !errors.Is(err, ErrNoRunningBatch) {
		t.Fatalf("idle cancel err = %v, want ErrNoRunningBatch", err)
	}

	ctx, err := m.Begin(context.Background(), "batch-1", 2)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-ctx.Done():
	default:
		t.Fatal("batch context not cancelled")
	}
}

// TestManagerFinishIgnoresStaleID verifies a stale Finish is a no-op.
func TestManagerFinishIgnoresStaleID(t *testing.T) {
	m := NewManager()
	if _, err := m.Begin(context.Background(), "batch-1", 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m.Finish("batch-0")
	if !m.IsRunning() {
		t.Fatal("Finish with stale ID stopped the active batch")
	}

	state := m.Current()
	if state.ID != "batch-1" || state.Total != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
}
