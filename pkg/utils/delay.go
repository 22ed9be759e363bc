package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomDelay returns a uniformly distributed duration in [min, max].
// If max <= min, min is returned.
func RandomDelay(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer produces the randomized pauses between browser actions.
// SleepFunc can be replaced in tests to avoid real waits.
type Pacer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	SleepFunc func(ctx context.Context, d time.Duration) error
}

func NewPacer(seed int64) *Pacer {
	return &Pacer{
		rng:       rand.New(rand.NewSource(seed)),
		SleepFunc: Sleep,
	}
}

// Between picks a random duration in [min, max].
func (p *Pacer) Between(min, max time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return RandomDelay(p.rng, min, max)
}

// Intn returns a random int in [0, n).
func (p *Pacer) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	return p.SleepFunc(ctx, d)
}

// SleepBetween sleeps for a random duration in [min, max].
func (p *Pacer) SleepBetween(ctx context.Context, min, max time.Duration) error {
	return p.SleepFunc(ctx, p.Between(min, max))
}

// EstimateRemaining extrapolates the time left from the average time per finished item.
// Returns zero when nothing has finished yet.
func EstimateRemaining(elapsed time.Duration, done, remaining int) time.Duration {
	if done <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(int64(elapsed) / int64(done) * int64(remaining))
}
