package worker

import "time"

// RetryPolicy controls how failed Sheets sync tasks are rescheduled.
// Zero fields fall back to the values of DefaultRetryPolicy.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy gives a sheet outage about five minutes to recover
// before tasks go to the dead letter list.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
}

// Exhausted reports whether a task that has failed attempt times is dead.
func (r RetryPolicy) Exhausted(attempt int) bool {
	limit := r.MaxRetries
	if limit <= 0 {
		limit = DefaultRetryPolicy().MaxRetries
	}
	return attempt >= limit
}

// NextDelay is the wait before retry number attempt (1-based), capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}
	if r.MaxDelay > 0 && time.Duration(delay) > r.MaxDelay {
		return r.MaxDelay
	}
	return time.Duration(delay)
}
