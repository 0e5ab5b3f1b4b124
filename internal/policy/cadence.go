package policy

import (
	"math"
	"time"
)

// Interval returns the minimum gap between two productions for a cadence
// expressed as productions per day. ok is false when the cadence is zero or
// negative, meaning the channel is never due. A cadence small enough to push
// the interval past the representable range is clamped rather than allowed to
// overflow into a negative duration.
func Interval(perDay float64) (time.Duration, bool) {
	if perDay <= 0 {
		return 0, false
	}
	interval := float64(24*time.Hour) / perDay
	if interval >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(interval), true
}

// IsDue reports whether a channel is due for a new production. A channel that
// has never produced is always due. Due-ness is time-based, not tick-based:
// a channel whose interval is shorter than the tick interval fires on the
// next tick after the interval elapses, but never more than once per
// evaluation regardless of how many intervals have passed.
func IsDue(perDay float64, lastProducedAt *time.Time, now time.Time) bool {
	interval, ok := Interval(perDay)
	if !ok {
		return false
	}
	if lastProducedAt == nil {
		return true
	}
	return now.Sub(*lastProducedAt) >= interval
}

// NextEligibleAt returns the earliest time the channel can produce again.
// A zero time with ok=true means the channel is eligible immediately.
func NextEligibleAt(perDay float64, lastProducedAt *time.Time) (time.Time, bool) {
	interval, ok := Interval(perDay)
	if !ok {
		return time.Time{}, false
	}
	if lastProducedAt == nil {
		return time.Time{}, true
	}
	return lastProducedAt.Add(interval), true
}
