package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// LeaseStore implements per-channel mutual exclusion as rows in shared
// storage, so the guarantee holds across scheduler hosts, not just within
// one process.
type LeaseStore struct {
	db *sqlx.DB
}

func NewLeaseStore(db *sqlx.DB) *LeaseStore {
	return &LeaseStore{db: db}
}

// TryAcquire attempts to take the channel's production lease without
// blocking. A live lease held by anyone wins; an expired lease is taken over
// in the same statement, in which case reclaimed is true and the previous
// attempt is presumed dead.
func (s *LeaseStore) TryAcquire(ctx context.Context, channelID, holder string, ttl time.Duration) (acquired, reclaimed bool, err error) {
	now := time.Now().UTC()

	// xmax <> 0 distinguishes the takeover path from a fresh insert.
	query := `
		INSERT INTO production_leases (channel_id, holder, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id) DO UPDATE SET
			holder = EXCLUDED.holder,
			acquired_at = EXCLUDED.acquired_at,
			expires_at = EXCLUDED.expires_at
		WHERE production_leases.expires_at <= EXCLUDED.acquired_at
		RETURNING (xmax <> 0)`

	err = s.db.QueryRowContext(ctx, query, channelID, holder, now, now.Add(ttl)).Scan(&reclaimed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, reclaimed, nil
}

// Release drops the lease if it is still held by the given holder. A lease
// already reclaimed by someone else is left alone.
func (s *LeaseStore) Release(ctx context.Context, channelID, holder string) error {
	query := `DELETE FROM production_leases WHERE channel_id = $1 AND holder = $2`

	_, err := s.db.ExecContext(ctx, query, channelID, holder)
	return err
}
