package domain

import "time"

// Outcome is the terminal state of one channel evaluation within a tick.
type Outcome string

const (
	OutcomeNotDue     Outcome = "not_due"
	OutcomeOverBudget Outcome = "over_budget"
	OutcomeLocked     Outcome = "locked"
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
)

// TickStats holds statistics about one evaluation pass over all active channels.
type TickStats struct {
	Evaluated  int
	Produced   int
	Failed     int
	NotDue     int
	OverBudget int
	Locked     int
	Reclaimed  int
	Published  int
	SpentCents int64
	Duration   time.Duration
}
