package batch

import (
	"context"
	"sync"
)

// Limiter bounds the number of concurrently executing groups. Unlike a
// channel semaphore its limit can be raised or lowered while holders
// are in flight; lowering never interrupts work already admitted, it
// only delays new admissions.
type Limiter struct {
	mu        sync.Mutex
	cond      *sync.Cond
	limit     int
	active    int
	maxActive int
}

// NewLimiter creates a limiter with the given initial limit. Limits
// below one are raised to one.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	l := &Limiter{limit: limit}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until a slot is available or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Wake waiters when the caller goes away, otherwise a cancelled
	// Acquire could sleep on the cond forever.
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.active >= l.limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}

	l.active++
	if l.active > l.maxActive {
		l.maxActive = l.active
	}
	return nil
}

// Release returns a slot and wakes one waiter.
func (l *Limiter) Release() {
	l.mu.Lock()
	if l.active > 0 {
		l.active--
	}
	l.mu.Unlock()
	l.cond.Signal()
}

// SetLimit changes the concurrency limit. Raising it admits blocked
// waiters immediately.
func (l *Limiter) SetLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	l.mu.Lock()
	l.limit = limit
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Limit returns the current concurrency limit.
func (l *Limiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Active returns the number of currently admitted holders.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxActive returns the high-water mark of concurrent holders.
func (l *Limiter) MaxActive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxActive
}
