package domain

import "time"

type LedgerOutcome string

const (
	// LedgerOutcomeSuccess records the settled cost of a completed production.
	LedgerOutcomeSuccess LedgerOutcome = "success"
	// LedgerOutcomeNoCharge records non-refundable spend from an attempt that
	// failed partway through. It is excluded from budget accounting.
	LedgerOutcomeNoCharge LedgerOutcome = "attempted_no_charge"
)

// LedgerEntry is one immutable spend event. The ledger is append-only: the
// sum of a channel's success entries for a day must equal that channel's
// TodayCostCents cursor once all commits have landed.
type LedgerEntry struct {
	ID          string        `db:"id"`
	ChannelID   string        `db:"channel_id"`
	OwnerID     string        `db:"owner_id"`
	AmountCents int64         `db:"amount_cents"`
	Currency    string        `db:"currency"`
	Outcome     LedgerOutcome `db:"outcome"`
	ArtifactRef string        `db:"artifact_ref"`
	CreatedAt   time.Time     `db:"created_at"`
}
