package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ugc_producer/internal/config"
	"ugc_producer/internal/domain"
	"ugc_producer/internal/metrics"
	"ugc_producer/internal/policy"
)

// Producer is the evaluation loop: on every tick it walks all active
// channels and, for each one that is due and affordable, runs one production
// under a per-channel lease, then commits the cost and the channel cursor
// together.
type Producer struct {
	channels  ChannelStore
	ledger    LedgerStore
	leases    LeaseStore
	pipeline  Pipeline
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.ProducerConfig
	holder    string
}

func NewProducer(
	channels ChannelStore,
	ledger LedgerStore,
	leases LeaseStore,
	pipeline Pipeline,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.ProducerConfig,
	holder string,
) *Producer {
	return &Producer{
		channels:  channels,
		ledger:    ledger,
		leases:    leases,
		pipeline:  pipeline,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("holder", holder),
		config:    cfg,
		holder:    holder,
	}
}

// evalResult is the terminal state of one channel evaluation.
type evalResult struct {
	outcome    domain.Outcome
	spentCents int64
	published  bool
	reclaimed  bool
}

// RunTick evaluates every active channel once. Channels are processed
// concurrently up to MaxConcurrent; one channel's failure never affects the
// others. A channel whose previous production is still in flight is observed
// through its held lease and skipped.
func (p *Producer) RunTick(ctx context.Context) (*domain.TickStats, error) {
	startTime := time.Now()

	channels, err := p.channels.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}

	p.logger.Info("tick started",
		"channels", len(channels),
		"max_concurrent", p.config.MaxConcurrent,
	)

	stats := &domain.TickStats{Evaluated: len(channels)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(p.config.MaxConcurrent)

	for i := range channels {
		ch := channels[i]
		g.Go(func() error {
			res := p.evaluate(ctx, &ch, false)

			mu.Lock()
			record(stats, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(startTime)

	p.logger.Info("tick completed",
		"produced", stats.Produced,
		"failed", stats.Failed,
		"not_due", stats.NotDue,
		"over_budget", stats.OverBudget,
		"locked", stats.Locked,
		"spent_cents", stats.SpentCents,
		"duration", stats.Duration,
	)

	return stats, nil
}

// ProduceNow is the manual override: it skips the cadence check but still
// enforces the budget and the per-channel lease.
func (p *Producer) ProduceNow(ctx context.Context, channelID string) (domain.Outcome, error) {
	ch, err := p.channels.Get(ctx, channelID)
	if err != nil {
		return "", fmt.Errorf("get channel: %w", err)
	}
	if ch.Status != domain.StatusActive {
		return "", fmt.Errorf("channel %s is %s, not active", ch.ID, ch.Status)
	}

	res := p.evaluate(ctx, ch, true)
	return res.outcome, nil
}

func record(stats *domain.TickStats, res evalResult) {
	switch res.outcome {
	case domain.OutcomeNotDue:
		stats.NotDue++
	case domain.OutcomeOverBudget:
		stats.OverBudget++
	case domain.OutcomeLocked:
		stats.Locked++
	case domain.OutcomeSucceeded:
		stats.Produced++
		stats.SpentCents += res.spentCents
	case domain.OutcomeFailed:
		stats.Failed++
	}
	if res.published {
		stats.Published++
	}
	if res.reclaimed {
		stats.Reclaimed++
	}
	metrics.RecordOutcome(string(res.outcome))
}

func (p *Producer) evaluate(ctx context.Context, ch *domain.Channel, force bool) evalResult {
	logger := p.logger.With(
		"channel_id", ch.ID,
		"platform", ch.Platform,
		"username", ch.Username,
	)

	now := time.Now().UTC()
	day := domain.UTCDay(now)

	// Lazy day-boundary reset: the first evaluation after a UTC rollover
	// zeroes the daily spend cursor before any policy runs. The store guard
	// keeps the reset to exactly once per day.
	if ch.CostDay.Before(day) {
		reset, err := p.channels.ResetDailyCost(ctx, ch.ID, day)
		if err != nil {
			logger.Error("daily cost reset failed", "error", err)
			return evalResult{outcome: domain.OutcomeFailed}
		}
		if reset {
			logger.Info("daily cost reset", "previous_cents", ch.TodayCostCents)
		}
		ch.TodayCostCents = 0
		ch.CostDay = day
	}

	if !force && !policy.IsDue(ch.VideosPerDay, ch.LastProducedAt, now) {
		next, _ := policy.NextEligibleAt(ch.VideosPerDay, ch.LastProducedAt)
		logger.Debug("not due", "next_eligible_at", next)
		return evalResult{outcome: domain.OutcomeNotDue}
	}

	estimate := p.pipeline.EstimateCost(ch)
	if !policy.CanAfford(ch.TodayCostCents, ch.DailyCapCents, estimate) {
		logger.Info("daily spend cap reached",
			"today_cents", ch.TodayCostCents,
			"cap_cents", ch.DailyCapCents,
			"estimate_cents", estimate,
		)
		return evalResult{outcome: domain.OutcomeOverBudget}
	}

	acquired, reclaimed, err := p.leases.TryAcquire(ctx, ch.ID, p.holder, p.config.MaxProductionTime)
	if err != nil {
		logger.Error("lease acquire failed", "error", err)
		return evalResult{outcome: domain.OutcomeFailed}
	}
	if !acquired {
		logger.Debug("production already in flight")
		return evalResult{outcome: domain.OutcomeLocked}
	}
	if reclaimed {
		logger.Warn("reclaimed stale lease", "ttl", p.config.MaxProductionTime)
		metrics.StaleLeaseReclaims.Inc()
	}
	defer p.releaseLease(ch.ID, logger)

	// The enumeration snapshot can go stale before the lease lands: another
	// host may commit and release in between. Re-check both policies against
	// a fresh read now that the channel is exclusively held.
	fresh, err := p.channels.Get(ctx, ch.ID)
	if err != nil {
		logger.Error("channel refresh failed", "error", err)
		return evalResult{outcome: domain.OutcomeFailed, reclaimed: reclaimed}
	}
	ch = fresh
	if !force && !policy.IsDue(ch.VideosPerDay, ch.LastProducedAt, now) {
		logger.Debug("no longer due under lease")
		return evalResult{outcome: domain.OutcomeNotDue, reclaimed: reclaimed}
	}
	if !policy.CanAfford(ch.TodayCostCents, ch.DailyCapCents, estimate) {
		logger.Info("daily spend cap reached under lease",
			"today_cents", ch.TodayCostCents,
			"cap_cents", ch.DailyCapCents,
			"estimate_cents", estimate,
		)
		return evalResult{outcome: domain.OutcomeOverBudget, reclaimed: reclaimed}
	}

	logger.Info("starting production", "estimate_cents", estimate)

	prodStart := time.Now()
	prodCtx, cancel := context.WithTimeout(ctx, p.config.MaxProductionTime)
	artifact, err := p.pipeline.Produce(prodCtx, ch)
	cancel()

	if err != nil {
		metrics.ObserveProduction("failure", time.Since(prodStart).Seconds())
		logger.Error("production failed", "error", err)
		p.recordFailedAttempt(ctx, ch, err, logger)
		return evalResult{outcome: domain.OutcomeFailed, reclaimed: reclaimed}
	}
	metrics.ObserveProduction("success", time.Since(prodStart).Seconds())

	// The estimate was checked pre-call; if the settled cost blew past the
	// cap the money is already spent, so flag it rather than block.
	if artifact.CostCents > estimate && !policy.CanAfford(ch.TodayCostCents, ch.DailyCapCents, artifact.CostCents) {
		logger.Warn("actual cost exceeded estimate past daily cap",
			"estimate_cents", estimate,
			"actual_cents", artifact.CostCents,
			"cap_cents", ch.DailyCapCents,
		)
		metrics.CostOverruns.Inc()
	}

	if err := p.commitProduction(ctx, ch, artifact, logger); err != nil {
		return evalResult{outcome: domain.OutcomeFailed, reclaimed: reclaimed}
	}

	published := false
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, ch, artifact); err != nil {
			logger.Error("artifact event publish failed", "error", err)
		} else {
			published = true
		}
	}

	logger.Info("production succeeded",
		"artifact", artifact.Reference,
		"cost_cents", artifact.CostCents,
		"lifetime_count", ch.LifetimeCount+1,
	)

	return evalResult{
		outcome:    domain.OutcomeSucceeded,
		spentCents: artifact.CostCents,
		published:  published,
		reclaimed:  reclaimed,
	}
}

// commitProduction writes the ledger entry and the channel cursor advance as
// one transaction so the channel is never charged without its cursor moving,
// or vice versa. Storage failures after a real charge are retried; if they
// still fail, the full entry is logged for manual reconciliation rather than
// dropped.
func (p *Producer) commitProduction(ctx context.Context, ch *domain.Channel, artifact *domain.Artifact, logger *slog.Logger) error {
	entry := &domain.LedgerEntry{
		ID:          uuid.NewString(),
		ChannelID:   ch.ID,
		OwnerID:     ch.OwnerID,
		AmountCents: artifact.CostCents,
		Currency:    "USD",
		Outcome:     domain.LedgerOutcomeSuccess,
		ArtifactRef: artifact.Reference,
		CreatedAt:   artifact.ProducedAt,
	}

	err := p.withRetry(ctx, "commit production", logger, func(ctx context.Context) error {
		return p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := p.ledger.Append(txCtx, entry); err != nil {
				return fmt.Errorf("append ledger entry: %w", err)
			}
			if err := p.channels.AdvanceCursor(txCtx, ch.ID, artifact.ProducedAt, artifact.CostCents); err != nil {
				return fmt.Errorf("advance cursor: %w", err)
			}
			return nil
		})
	})
	if err == nil {
		return nil
	}

	ledgerCents, sumErr := p.ledger.SumToday(ctx, ch.ID, domain.UTCDay(artifact.ProducedAt))
	if sumErr != nil {
		ledgerCents = -1
	}
	logger.Error("production commit failed, manual reconciliation required",
		"error", err,
		"entry_id", entry.ID,
		"amount_cents", entry.AmountCents,
		"artifact", artifact.Reference,
		"ledger_today_cents", ledgerCents,
		"cursor_today_cents", ch.TodayCostCents,
	)
	return err
}

// recordFailedAttempt writes an attempted_no_charge ledger entry when a
// failed production still burned non-refundable vendor spend before dying.
func (p *Producer) recordFailedAttempt(ctx context.Context, ch *domain.Channel, prodErr error, logger *slog.Logger) {
	var pe *domain.ProductionError
	if !errors.As(prodErr, &pe) || pe.PartialCostCents <= 0 {
		return
	}

	entry := &domain.LedgerEntry{
		ID:          uuid.NewString(),
		ChannelID:   ch.ID,
		OwnerID:     ch.OwnerID,
		AmountCents: pe.PartialCostCents,
		Currency:    "USD",
		Outcome:     domain.LedgerOutcomeNoCharge,
		CreatedAt:   time.Now().UTC(),
	}

	err := p.withRetry(ctx, "record failed attempt", logger, func(ctx context.Context) error {
		return p.ledger.Append(ctx, entry)
	})
	if err != nil {
		logger.Error("failed-attempt ledger entry dropped, manual reconciliation required",
			"error", err,
			"entry_id", entry.ID,
			"amount_cents", entry.AmountCents,
			"stage", pe.Stage,
		)
		return
	}

	logger.Info("recorded sunk cost of failed attempt",
		"amount_cents", entry.AmountCents,
		"stage", pe.Stage,
	)
}

func (p *Producer) releaseLease(channelID string, logger *slog.Logger) {
	// The evaluation context may already be cancelled; the release must
	// still reach storage or the channel stays locked until the TTL.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.leases.Release(ctx, channelID, p.holder); err != nil {
		logger.Error("lease release failed, lease expires by TTL", "error", err)
	}
}

func (p *Producer) withRetry(ctx context.Context, op string, logger *slog.Logger, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.config.CommitRetry.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt == p.config.CommitRetry.MaxAttempts {
			break
		}

		backoff := p.calculateBackoff(attempt)
		logger.Warn(op+" failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.config.CommitRetry.MaxAttempts, err)
}

func (p *Producer) calculateBackoff(attempt int) time.Duration {
	backoff := p.config.CommitRetry.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > p.config.CommitRetry.MaxBackoff {
		backoff = p.config.CommitRetry.MaxBackoff
	}
	return backoff
}
