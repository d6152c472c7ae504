package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	l := NewLimiter(3)

	var wg sync.WaitGroup
	var active, peak atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer l.Release()

			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	if m := l.MaxActive(); m > 3 {
		t.Errorf("MaxActive = %d, want <= 3", m)
	}
	if a := l.Active(); a != 0 {
		t.Errorf("Active after drain = %d, want 0", a)
	}
}

func TestLimiter_RaiseLimitAdmitsWaiter(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	admitted := make(chan struct{})
	go func() {
		if err := l.Acquire(context.Background()); err != nil {
			t.Errorf("waiter Acquire: %v", err)
			return
		}
		close(admitted)
	}()

	select {
	case <-admitted:
		t.Fatal("waiter admitted past the limit")
	case <-time.After(20 * time.Millisecond):
	}

	l.SetLimit(2)
	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("waiter not admitted after SetLimit")
	}
}

func TestLimiter_LowerLimitDelaysAdmission(t *testing.T) {
	l := NewLimiter(2)
	_ = l.Acquire(context.Background())
	_ = l.Acquire(context.Background())

	l.SetLimit(1)
	l.Release()

	// One holder remains and the limit is now 1, so nothing is free.
	ok := make(chan struct{})
	go func() {
		_ = l.Acquire(context.Background())
		close(ok)
	}()
	select {
	case <-ok:
		t.Fatal("admitted above the lowered limit")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatal("waiter not admitted after release")
	}
}

func TestLimiter_AcquireCancelled(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- l.Acquire(ctx)
	}()
	cancel()

	select {
	case err := <-errs:
		if err != context.Canceled {
			t.Errorf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire did not return")
	}
}

func TestLimiter_FloorsAtOne(t *testing.T) {
	l := NewLimiter(0)
	if got := l.Limit(); got != 1 {
		t.Errorf("Limit = %d, want 1", got)
	}
	l.SetLimit(-3)
	if got := l.Limit(); got != 1 {
		t.Errorf("Limit after SetLimit(-3) = %d, want 1", got)
	}
}
