package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps request timestamps per key in process memory.
// It is used when no Redis is configured and in tests.
type MemoryLimiter struct {
	requests map[string]*window
	mu       sync.Mutex
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type window struct {
	times  []time.Time
	length time.Duration
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter starts a limiter whose stale keys are swept every cleanupEvery.
func NewMemoryLimiter(cleanupEvery time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{
		requests: make(map[string]*window),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if cleanupEvery > 0 {
		go ml.cleanupLoop(cleanupEvery)
	}
	return ml
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string, limit int, length time.Duration) (Result, error) {
	if limit == Unlimited {
		return unlimited(), nil
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	w, ok := ml.requests[key]
	if !ok {
		w = &window{}
		ml.requests[key] = w
	}
	w.length = length
	w.times = pruneBefore(w.times, now.Add(-length))

	if len(w.times) < limit {
		w.times = append(w.times, now)
		return Result{Allowed: true, Remaining: limit - len(w.times)}, nil
	}

	retry := length
	if len(w.times) > 0 {
		retry = w.times[0].Add(length).Sub(now)
	}
	return Result{Allowed: false, RetryAfter: retry}, nil
}

// Stop ends the cleanup goroutine.
func (ml *MemoryLimiter) Stop() {
	ml.stopOnce.Do(func() { close(ml.stopChan) })
}

func (ml *MemoryLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ml.cleanup()
		case <-ml.stopChan:
			return
		}
	}
}

func (ml *MemoryLimiter) cleanup() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	for key, w := range ml.requests {
		w.times = pruneBefore(w.times, now.Add(-w.length))
		if len(w.times) == 0 {
			delete(ml.requests, key)
		}
	}
}

// pruneBefore drops timestamps not after cutoff. Timestamps are kept in
// insertion order, so the first survivor marks the rest.
func pruneBefore(requests []time.Time, cutoff time.Time) []time.Time {
	for i, t := range requests {
		if t.After(cutoff) {
			return requests[i:]
		}
	}
	return requests[:0]
}
