package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"ugc_producer/internal/domain"
)

type ChannelStore struct {
	db *sqlx.DB
}

func NewChannelStore(db *sqlx.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

const channelColumns = `
	id, owner_id, username, platform, template_id, videos_per_day,
	daily_cap_cents, status, last_produced_at, cost_day, today_cost_cents,
	lifetime_cost_cents, lifetime_count, created_at, updated_at`

func (s *ChannelStore) ListActive(ctx context.Context) ([]domain.Channel, error) {
	query := `SELECT` + channelColumns + `
		FROM channels
		WHERE status = $1
		ORDER BY id`

	var channels []domain.Channel
	if err := s.db.SelectContext(ctx, &channels, query, domain.StatusActive); err != nil {
		return nil, err
	}
	return channels, nil
}

func (s *ChannelStore) Get(ctx context.Context, id string) (*domain.Channel, error) {
	query := `SELECT` + channelColumns + `
		FROM channels
		WHERE id = $1`

	var ch domain.Channel
	err := s.db.GetContext(ctx, &ch, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ResetDailyCost zeroes a channel's daily spend cursor for a new UTC day. The
// cost_day guard makes the reset idempotent: only the first caller after a
// day boundary modifies the row, concurrent or repeated calls are no-ops.
func (s *ChannelStore) ResetDailyCost(ctx context.Context, id string, day time.Time) (bool, error) {
	query := `
		UPDATE channels
		SET today_cost_cents = 0, cost_day = $2, updated_at = now()
		WHERE id = $1 AND cost_day < $2`

	res, err := s.db.ExecContext(ctx, query, id, day)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AdvanceCursor records one successful production on the channel: moves the
// last-produced timestamp and accumulates daily cost, lifetime cost and
// lifetime count in a single atomic update. Joins the ambient transaction so
// the cursor advance commits together with its ledger entry.
func (s *ChannelStore) AdvanceCursor(ctx context.Context, id string, producedAt time.Time, costCents int64) error {
	query := `
		UPDATE channels
		SET last_produced_at = $2,
			today_cost_cents = today_cost_cents + $3,
			lifetime_cost_cents = lifetime_cost_cents + $3,
			lifetime_count = lifetime_count + 1,
			updated_at = now()
		WHERE id = $1`

	exec := GetExecutor(ctx, s.db)
	res, err := exec.ExecContext(ctx, query, id, producedAt, costCents)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}
