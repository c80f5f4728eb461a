package engine

import "time"

// Backoff returns the delay before retry number attempt (1-based) of a
// channel push: base doubled per attempt, capped at max.
func Backoff(attempt uint32, base, max time.Duration) time.Duration {
	if attempt == 0 {
		attempt = 1
	}
	d := base
	for i := uint32(1); i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
