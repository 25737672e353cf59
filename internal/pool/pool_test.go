package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	p := NewWorkerPool(3, 10, zap.NewNop())
	p.Start()
	defer p.Stop()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Do(context.Background(), func(ctx context.Context) { count.Add(1) }); err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := count.Load(); got != 10 {
		t.Errorf("expected 10 tasks run, got %d", got)
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	p := NewWorkerPool(2, 10, zap.NewNop())
	p.Start()
	defer p.Stop()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(ctx context.Context) {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				active.Add(-1)
			})
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestWorkerPool_RejectsWhenQueueFull(t *testing.T) {
	p := NewWorkerPool(1, 0, zap.NewNop())
	p.Start()
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	err := p.Do(context.Background(), func(ctx context.Context) {})
	close(release)

	if !errors.Is(err, domain.ErrServerBusy) {
		t.Errorf("expected ErrServerBusy, got %v", err)
	}
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	p := NewWorkerPool(1, 1, zap.NewNop())
	p.Start()
	defer p.Stop()

	if err := p.Do(context.Background(), func(ctx context.Context) { panic("boom") }); err != nil {
		t.Fatalf("Do: %v", err)
	}

	ran := false
	if err := p.Do(context.Background(), func(ctx context.Context) { ran = true }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran {
		t.Error("worker did not survive a panicking task")
	}
}

func TestWorkerPool_StoppedPoolRefuses(t *testing.T) {
	p := NewWorkerPool(1, 1, zap.NewNop())
	p.Start()
	p.Stop()

	if err := p.Do(context.Background(), func(ctx context.Context) {}); !errors.Is(err, domain.ErrServerBusy) {
		t.Errorf("expected ErrServerBusy after Stop, got %v", err)
	}
}

func TestWorkerPool_QueueTimeoutReturnsBusy(t *testing.T) {
	p := NewWorkerPool(1, 1, zap.NewNop(), WithQueueTimeout(30*time.Millisecond))
	p.Start()
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	var ran atomic.Bool
	err := p.Do(context.Background(), func(ctx context.Context) { ran.Store(true) })
	if !errors.Is(err, domain.ErrServerBusy) {
		t.Fatalf("expected ErrServerBusy, got %v", err)
	}

	close(release)
	// The abandoned task must be skipped once the worker frees up.
	if err := p.Do(context.Background(), func(ctx context.Context) {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if ran.Load() {
		t.Error("task that timed out in the queue was still executed")
	}
}

func TestWorkerPool_QueueTimeoutDoesNotCutRunningTask(t *testing.T) {
	p := NewWorkerPool(1, 1, zap.NewNop(), WithQueueTimeout(20*time.Millisecond))
	p.Start()
	defer p.Stop()

	var ran atomic.Bool
	err := p.Do(context.Background(), func(ctx context.Context) {
		time.Sleep(50 * time.Millisecond)
		ran.Store(true)
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran.Load() {
		t.Error("Do returned before the running task finished")
	}
}
