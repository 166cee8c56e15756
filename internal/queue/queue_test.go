package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnqueue_FIFOPerTenant(t *testing.T) {
	q := New(testLogger())
	ctx := context.Background()

	var mu sync.Mutex
	var order []int

	// Hold the tenant's slot with a gate task so later tasks stack up in a
	// known enqueue order before any of them runs.
	gate := make(chan struct{})
	gateStarted := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Enqueue(ctx, 1, func(context.Context) error {
			close(gateStarted)
			<-gate
			return nil
		})
	}()
	<-gateStarted

	const n = 10
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(ctx, 1, func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Wait until this task is visibly queued before enqueueing the next.
		deadline := time.Now().Add(2 * time.Second)
		for q.Pending(1) != i+1 {
			if time.Now().After(deadline) {
				t.Fatalf("task %d never queued (pending=%d)", i, q.Pending(1))
			}
			time.Sleep(time.Millisecond)
		}
	}

	close(gate)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("tasks completed out of order: %v", order)
		}
	}
}

func TestEnqueue_FailureDoesNotBlockTenant(t *testing.T) {
	q := New(testLogger())
	ctx := context.Background()

	errBoom := fmt.Errorf("boom")

	var wg sync.WaitGroup
	var secondRan bool

	wg.Add(2)
	results := make([]error, 2)
	go func() {
		defer wg.Done()
		results[0] = q.Enqueue(ctx, 7, func(context.Context) error { return errBoom })
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		results[1] = q.Enqueue(ctx, 7, func(context.Context) error {
			secondRan = true
			return nil
		})
	}()
	wg.Wait()

	if results[0] == nil {
		t.Error("expected first task's error to propagate to its enqueuer")
	}
	if results[1] != nil {
		t.Errorf("expected second task to succeed, got %v", results[1])
	}
	if !secondRan {
		t.Error("expected second task to run after the first failed")
	}
}

func TestEnqueue_PanicConvertedToError(t *testing.T) {
	q := New(testLogger())

	err := q.Enqueue(context.Background(), 3, func(context.Context) error {
		panic("oops")
	})
	if err == nil {
		t.Fatal("expected a panic to surface as an error")
	}

	// The tenant queue must still work afterwards.
	if err := q.Enqueue(context.Background(), 3, func(context.Context) error { return nil }); err != nil {
		t.Errorf("expected queue to survive a panic, got %v", err)
	}
}

func TestEnqueue_CrossTenantConcurrency(t *testing.T) {
	q := New(testLogger())
	ctx := context.Background()

	// Tenant 1 holds its slot until released. Tenant 2 must not wait for it.
	release := make(chan struct{})
	tenant1Started := make(chan struct{})

	go func() {
		_ = q.Enqueue(ctx, 1, func(context.Context) error {
			close(tenant1Started)
			<-release
			return nil
		})
	}()
	<-tenant1Started

	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(ctx, 2, func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("tenant 2 task failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tenant 2 was blocked behind tenant 1")
	}
	close(release)
}

func TestQueue_PrunesIdleTenants(t *testing.T) {
	q := New(testLogger())

	for i := int64(0); i < 5; i++ {
		if err := q.Enqueue(context.Background(), i, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	// Drain goroutines remove entries after the last task completes.
	deadline := time.Now().Add(2 * time.Second)
	for q.ActiveTenants() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected idle tenants to be pruned, still have %d", q.ActiveTenants())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueue_Counters(t *testing.T) {
	q := New(testLogger())
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Enqueue(ctx, 9, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if !q.Running(9) {
		t.Error("expected tenant 9 to be running")
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Enqueue(ctx, 9, func(context.Context) error { return nil })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for q.Pending(9) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected one pending task, got %d", q.Pending(9))
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	if err := <-blocked; err != nil {
		t.Errorf("queued task failed: %v", err)
	}
	if q.Pending(9) != 0 {
		t.Errorf("expected no pending tasks after drain, got %d", q.Pending(9))
	}
}

func TestEnqueue_ContextCancellation(t *testing.T) {
	q := New(testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Enqueue(context.Background(), 4, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Enqueue(ctx, 4, func(context.Context) error { return nil })
	if err != context.Canceled {
		t.Errorf("expected context.Canceled for an abandoned wait, got %v", err)
	}
	close(release)
}
