package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) Err() error {
	return r.err
}

type stubJob struct {
	shouldErr bool
	executed  *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.shouldErr {
		return &stubResult{err: errors.New("job error")}
	}
	return &stubResult{}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	if p := NewPool(5); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("expected floor of 1 worker for 0, got %d", p.workers)
	}
	if p := NewPool(-3); p.workers != 1 {
		t.Errorf("expected floor of 1 worker for negative, got %d", p.workers)
	}
}

func TestPool_ExecutesEveryJob(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var executed int32
	count := 10
	for i := 0; i < count; i++ {
		pool.Submit(&stubJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executions, got %d", count, executed)
	}
}

type trackingJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *trackingJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &stubResult{}
}

func TestPool_ConcurrencyBound(t *testing.T) {
	workers := 4
	pool := NewPool(workers)
	pool.Start()

	var current, peak int32
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		pool.Submit(&trackingJob{
			start: func() {
				n := atomic.AddInt32(&current, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
			},
			end:      func() { atomic.AddInt32(&current, -1) },
			duration: 5 * time.Millisecond,
		})
	}
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak > int32(workers) {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	}
}

func TestPool_ErrorsSurfaceInResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&stubJob{shouldErr: true})
	pool.Submit(&stubJob{})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failures := 0
	for _, r := range results {
		if r.Err() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestPool_SubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&stubJob{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownClosesResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&trackingJob{
		start:    func() { close(started) },
		duration: 100 * time.Millisecond,
	})
	<-started
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for range pool.results {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not close the results channel")
	}
}
