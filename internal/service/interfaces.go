package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"ugc_producer/internal/domain"
)

type ChannelStore interface {
	ListActive(ctx context.Context) ([]domain.Channel, error)
	Get(ctx context.Context, id string) (*domain.Channel, error)
	ResetDailyCost(ctx context.Context, id string, day time.Time) (bool, error)
	AdvanceCursor(ctx context.Context, id string, producedAt time.Time, costCents int64) error
}

type LedgerStore interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	SumToday(ctx context.Context, channelID string, day time.Time) (int64, error)
}

type LeaseStore interface {
	TryAcquire(ctx context.Context, channelID, holder string, ttl time.Duration) (acquired, reclaimed bool, err error)
	Release(ctx context.Context, channelID, holder string) error
}

type Pipeline interface {
	EstimateCost(ch *domain.Channel) int64
	Produce(ctx context.Context, ch *domain.Channel) (*domain.Artifact, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, ch *domain.Channel, artifact *domain.Artifact) error
	Close() error
}
