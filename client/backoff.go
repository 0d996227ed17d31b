package client

import (
	"math/rand"
	"time"
)

// Backoff produces exponential delays between retry attempts with up to a
// second of jitter so simultaneous clients do not reconverge on the
// server in lockstep.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// Jitter returns a random duration in [0, 1s). Replaceable in tests.
	Jitter func() time.Duration
}

// NewBackoff uses the default 1s base and 8s ceiling.
func NewBackoff() Backoff {
	return Backoff{
		Base: time.Second,
		Max:  8 * time.Second,
	}
}

// Delay returns the pause before retry attempt n, counted from zero:
// min(base*2^n, max) plus jitter.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}

	max := b.Max
	if max <= 0 {
		max = 8 * time.Second
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}

	return d + b.jitter()
}

func (b Backoff) jitter() time.Duration {
	if b.Jitter != nil {
		return b.Jitter()
	}
	return time.Duration(rand.Int63n(int64(time.Second)))
}
