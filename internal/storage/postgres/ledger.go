package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"ugc_producer/internal/domain"
)

// LedgerStore appends immutable spend events. There is no update or delete
// path: corrections are new entries.
type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO cost_ledger (
			id, channel_id, owner_id, amount_cents, currency, outcome,
			artifact_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, query,
		entry.ID,
		entry.ChannelID,
		entry.OwnerID,
		entry.AmountCents,
		entry.Currency,
		entry.Outcome,
		entry.ArtifactRef,
		entry.CreatedAt,
	)
	return err
}

// SumToday totals a channel's charged spend for one UTC day. Only success
// entries count toward the budget; attempted_no_charge entries track sunk
// cost from failed attempts and are excluded. Used to reconcile the ledger
// against the channel's today_cost_cents cursor.
func (s *LedgerStore) SumToday(ctx context.Context, channelID string, day time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM cost_ledger
		WHERE channel_id = $1
			AND outcome = $2
			AND created_at >= $3
			AND created_at < $3 + interval '1 day'`

	var total int64
	err := s.db.GetContext(ctx, &total, query, channelID, domain.LedgerOutcomeSuccess, day)
	if err != nil {
		return 0, err
	}
	return total, nil
}
