package ai

import (
	"context"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the number of provider calls made for one embedding.
	DefaultMaxAttempts = 5
	// DefaultMaxEmbeddingChars is the length ceiling above which text is not embedded.
	DefaultMaxEmbeddingChars = 10000
)

// Backoff computes capped exponential delays with additive jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter func() time.Duration
}

// DefaultBackoff waits min(60s, 1s*2^attempt) plus up to one second of jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Max:    60 * time.Second,
		Jitter: uniformJitter(time.Second),
	}
}

func uniformJitter(upper time.Duration) func() time.Duration {
	return func() time.Duration {
		return time.Duration(rand.Int63n(int64(upper)))
	}
}

// Delay returns the wait before retrying after the given 0-based failed attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.Max
	// Stop shifting once the cap is reached so large attempts cannot overflow.
	if attempt < 32 {
		if d := b.Base << uint(attempt); d > 0 && d < b.Max {
			delay = d
		}
	}
	if b.Jitter != nil {
		delay += b.Jitter()
	}
	return delay
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
