// Package queue serializes triage work per tenant (GitHub App installation)
// while allowing unrelated tenants to proceed concurrently.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a unit of work executed inside a tenant's queue slot.
type Task func(ctx context.Context) error

// job is one enqueued task plus the channel its result is delivered on.
type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// tenantState tracks a single tenant's queue. An entry exists only while the
// tenant has pending or running work; it is removed as soon as both drop to
// zero, so the map is bounded by currently active tenants.
type tenantState struct {
	pending []*job
	running bool
}

// TenantQueue runs tasks strictly one-at-a-time in FIFO order per tenant.
// Tasks for different tenants run concurrently with no ordering between them.
type TenantQueue struct {
	mu      sync.Mutex
	tenants map[int64]*tenantState
	logger  *slog.Logger
}

// New creates an empty TenantQueue.
func New(logger *slog.Logger) *TenantQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantQueue{
		tenants: make(map[int64]*tenantState),
		logger:  logger,
	}
}

// Enqueue schedules task behind any work already queued for tenantID and
// blocks until it completes, returning the task's error. A failing task does
// not block tasks enqueued after it for the same tenant. If ctx is cancelled
// before the task finishes, Enqueue returns the context error; the task may
// still run in its slot (downstream idempotency guards make that safe).
func (q *TenantQueue) Enqueue(ctx context.Context, tenantID int64, task Task) error {
	j := &job{
		ctx:  ctx,
		task: task,
		done: make(chan error, 1),
	}

	q.mu.Lock()
	st, ok := q.tenants[tenantID]
	if !ok {
		st = &tenantState{}
		q.tenants[tenantID] = st
	}
	st.pending = append(st.pending, j)
	if !st.running {
		st.running = true
		go q.drain(tenantID)
	}
	q.mu.Unlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain runs the tenant's queued jobs in order until none remain, then
// removes the tenant entry.
func (q *TenantQueue) drain(tenantID int64) {
	for {
		q.mu.Lock()
		st := q.tenants[tenantID]
		if len(st.pending) == 0 {
			delete(q.tenants, tenantID)
			q.mu.Unlock()
			return
		}
		j := st.pending[0]
		st.pending = st.pending[1:]
		q.mu.Unlock()

		j.done <- q.runOne(tenantID, j)
	}
}

// runOne executes a single job, converting a panic into an error so one bad
// task cannot take down the tenant's queue goroutine.
func (q *TenantQueue) runOne(tenantID int64, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", "tenant", tenantID, "panic", r)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}

// Pending reports how many tasks are queued (not yet started) for a tenant.
// The value is advisory: it may be stale by the time the caller reads it.
func (q *TenantQueue) Pending(tenantID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.tenants[tenantID]; ok {
		return len(st.pending)
	}
	return 0
}

// Running reports whether a task is currently executing for a tenant.
// Advisory, like Pending.
func (q *TenantQueue) Running(tenantID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.tenants[tenantID]; ok {
		return st.running
	}
	return false
}

// ActiveTenants reports how many tenants currently have queued or running
// work. Advisory.
func (q *TenantQueue) ActiveTenants() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tenants)
}
