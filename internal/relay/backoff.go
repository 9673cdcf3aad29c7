package relay

import (
	"math"
	"math/rand"
	"time"

	retry "github.com/avast/retry-go"
)

// Backoff defines the delay between dial attempts.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     bool
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    250 * time.Millisecond,
		Multiplier: 2.0,
		Max:        5 * time.Second,
		Jitter:     true,
	}
}

// Delay returns the wait before attempt (1-based). With jitter the delay is
// scaled by a factor in [0.5, 1.5).
func (b Backoff) Delay(attempt int, rng *rand.Rand) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	delay := float64(b.Initial)
	if attempt > 1 {
		delay *= math.Pow(b.Multiplier, float64(attempt-1))
	}
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// delayType adapts Delay to retry-go, which counts retries from zero.
func (b Backoff) delayType(rng *rand.Rand) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		return b.Delay(int(n)+1, rng)
	}
}
