package stream

import "time"

// backoff is the reconnect delay schedule: starts at floor, doubles per
// failure, saturates at cap. Not safe for concurrent use; each session
// owns one.
type backoff struct {
	floor   time.Duration
	cap     time.Duration
	current time.Duration
}

func newBackoff(floor, cap time.Duration) *backoff {
	return &backoff{floor: floor, cap: cap, current: floor}
}

// Next returns the delay to wait before the upcoming attempt and advances
// the schedule.
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.cap {
		b.current = b.cap
	}
	return d
}

func (b *backoff) Reset() {
	b.current = b.floor
}
