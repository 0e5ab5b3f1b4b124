package policy

// CanAfford reports whether one more production fits under a channel's daily
// spend cap. estimateCents is a conservative upper bound supplied by the
// pipeline before the call is made. A cap of zero is a hard pause: nothing is
// ever affordable.
func CanAfford(spentTodayCents, dailyCapCents, estimateCents int64) bool {
	if dailyCapCents <= 0 {
		return false
	}
	return spentTodayCents+estimateCents <= dailyCapCents
}
