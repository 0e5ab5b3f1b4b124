package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ugc_producer/internal/config"
	"ugc_producer/internal/domain"
	"ugc_producer/internal/service/mocks"
)

const testHolder = "test-host"

type ProducerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	channels  *mocks.MockChannelStore
	ledger    *mocks.MockLedgerStore
	leases    *mocks.MockLeaseStore
	pipeline  *mocks.MockPipeline
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	producer *Producer
	cfg      config.ProducerConfig
	logger   *slog.Logger
}

func (s *ProducerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.channels = mocks.NewMockChannelStore(s.ctrl)
	s.ledger = mocks.NewMockLedgerStore(s.ctrl)
	s.leases = mocks.NewMockLeaseStore(s.ctrl)
	s.pipeline = mocks.NewMockPipeline(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.ProducerConfig{
		TickInterval:      time.Hour,
		MaxConcurrent:     2,
		MaxProductionTime: time.Minute,
		CommitRetry: config.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.producer = NewProducer(
		s.channels,
		s.ledger,
		s.leases,
		s.pipeline,
		s.txManager,
		s.publisher,
		s.logger,
		s.cfg,
		testHolder,
	)
}

func (s *ProducerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestProducerTestSuite(t *testing.T) {
	suite.Run(t, new(ProducerTestSuite))
}

func (s *ProducerTestSuite) activeChannel() domain.Channel {
	return domain.Channel{
		ID:            "ch1",
		OwnerID:       "owner1",
		Username:      "promo_account",
		Platform:      domain.PlatformTikTok,
		TemplateID:    "tpl-1",
		VideosPerDay:  2,
		DailyCapCents: 100,
		Status:        domain.StatusActive,
		CostDay:       domain.UTCDay(time.Now().UTC()),
	}
}

func (s *ProducerTestSuite) expectTxPassthrough() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

// expectRefresh covers the fresh read the loop makes once the lease is held.
func (s *ProducerTestSuite) expectRefresh(ch *domain.Channel) {
	s.channels.EXPECT().Get(gomock.Any(), ch.ID).Return(ch, nil)
}

func (s *ProducerTestSuite) TestRunTick_NotDue() {
	ctx := context.Background()
	lastProduced := time.Now().UTC().Add(-1 * time.Hour) // 12h interval for 2/day

	ch := s.activeChannel()
	ch.LastProducedAt = &lastProduced

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Evaluated)
	s.Equal(1, stats.NotDue)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_OverBudget() {
	ctx := context.Background()

	ch := s.activeChannel()
	ch.TodayCostCents = 80

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(50))

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.OverBudget)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_Locked() {
	ctx := context.Background()

	ch := s.activeChannel()

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(false, false, nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Locked)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_Success() {
	ctx := context.Background()

	ch := s.activeChannel()
	artifact := &domain.Artifact{
		Reference:  "https://cdn.example.com/v/abc123.mp4",
		CostCents:  32,
		ProducedAt: time.Now().UTC(),
	}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.LedgerEntry) error {
			s.Equal("ch1", entry.ChannelID)
			s.Equal("owner1", entry.OwnerID)
			s.Equal(int64(32), entry.AmountCents)
			s.Equal(domain.LedgerOutcomeSuccess, entry.Outcome)
			s.Equal(artifact.Reference, entry.ArtifactRef)
			s.NotEmpty(entry.ID)
			return nil
		},
	)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
	s.Equal(0, stats.Failed)
	s.Equal(1, stats.Published)
	s.Equal(int64(32), stats.SpentCents)
}

func (s *ProducerTestSuite) TestRunTick_ProductionFailure() {
	ctx := context.Background()

	ch := s.activeChannel()

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil, errors.New("vendor unavailable"))
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Produced)
	s.Equal(int64(0), stats.SpentCents)
}

func (s *ProducerTestSuite) TestRunTick_ProductionFailureWithPartialCost() {
	ctx := context.Background()

	ch := s.activeChannel()
	prodErr := &domain.ProductionError{
		Stage:            "render",
		PartialCostCents: 5,
		Err:              errors.New("render crashed"),
	}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil, prodErr)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.LedgerEntry) error {
			s.Equal(domain.LedgerOutcomeNoCharge, entry.Outcome)
			s.Equal(int64(5), entry.AmountCents)
			s.Equal("ch1", entry.ChannelID)
			return nil
		},
	)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(int64(0), stats.SpentCents)
}

func (s *ProducerTestSuite) TestRunTick_DayBoundaryResetBeforeBudget() {
	ctx := context.Background()
	today := domain.UTCDay(time.Now().UTC())

	// Yesterday's spend already exceeds the cap; the lazy reset must run
	// before the budget check or the channel would be wrongly skipped.
	ch := s.activeChannel()
	ch.CostDay = today.AddDate(0, 0, -1)
	ch.TodayCostCents = 500
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	refreshed := ch
	refreshed.CostDay = today
	refreshed.TodayCostCents = 0

	s.channels.EXPECT().ResetDailyCost(ctx, "ch1", today).Return(true, nil)
	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&refreshed)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
	s.Equal(0, stats.OverBudget)
}

func (s *ProducerTestSuite) TestRunTick_StaleLeaseReclaimed() {
	ctx := context.Background()

	ch := s.activeChannel()
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, true, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
	s.Equal(1, stats.Reclaimed)
}

func (s *ProducerTestSuite) TestRunTick_CommitRetriesThenSucceeds() {
	ctx := context.Background()

	ch := s.activeChannel()
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)

	gomock.InOrder(
		s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).Return(errors.New("connection reset")),
		s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, fn func(context.Context) error) error {
				return fn(ctx)
			},
		),
	)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_CommitExhaustedSurfacesReconciliation() {
	ctx := context.Background()

	ch := s.activeChannel()
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).
		Return(errors.New("connection reset")).
		Times(s.cfg.CommitRetry.MaxAttempts)
	s.ledger.EXPECT().SumToday(gomock.Any(), "ch1", domain.UTCDay(artifact.ProducedAt)).Return(int64(0), nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_CostOverrunFlaggedNotBlocked() {
	ctx := context.Background()

	// Settled cost blows past the cap (estimate 32, cap 100, actual 200).
	// The spend already happened, so the full amount must be committed and
	// the production counted, never blocked retroactively.
	ch := s.activeChannel()
	artifact := &domain.Artifact{
		Reference:  "https://cdn.example.com/v/overrun.mp4",
		CostCents:  200,
		ProducedAt: time.Now().UTC(),
	}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.LedgerEntry) error {
			s.Equal(int64(200), entry.AmountCents)
			s.Equal(domain.LedgerOutcomeSuccess, entry.Outcome)
			return nil
		},
	)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(200)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
	s.Equal(0, stats.Failed)
	s.Equal(int64(200), stats.SpentCents)
}

func (s *ProducerTestSuite) TestRunTick_BudgetRecheckedUnderLease() {
	ctx := context.Background()

	// Affordable at enumeration time, but another host's commit lands before
	// the lease does. The fresh read under the lease must catch it.
	ch := s.activeChannel()
	refreshed := ch
	refreshed.TodayCostCents = 100

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&refreshed)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.OverBudget)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_CadenceRecheckedUnderLease() {
	ctx := context.Background()
	justProduced := time.Now().UTC().Add(-time.Minute)

	// Due at enumeration time, but another host produces before the lease
	// lands. The fresh cursor makes the channel not due anymore.
	ch := s.activeChannel()
	refreshed := ch
	refreshed.LastProducedAt = &justProduced

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&refreshed)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.NotDue)
	s.Equal(0, stats.Produced)
}

func (s *ProducerTestSuite) TestRunTick_PublishFailureDoesNotFailProduction() {
	ctx := context.Background()

	ch := s.activeChannel()
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(errors.New("broker down"))
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(1, stats.Produced)
	s.Equal(0, stats.Published)
}

func (s *ProducerTestSuite) TestRunTick_ChannelIsolation() {
	ctx := context.Background()

	ch1 := s.activeChannel()
	ch2 := s.activeChannel()
	ch2.ID = "ch2"
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().ListActive(ctx).Return([]domain.Channel{ch1, ch2}, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32)).Times(2)
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch2", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.expectRefresh(&ch1)
	s.expectRefresh(&ch2)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ch *domain.Channel) (*domain.Artifact, error) {
			if ch.ID == "ch1" {
				return nil, errors.New("vendor unavailable")
			}
			return artifact, nil
		},
	).Times(2)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch2", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch2", testHolder).Return(nil)

	stats, err := s.producer.RunTick(ctx)

	s.NoError(err)
	s.Equal(2, stats.Evaluated)
	s.Equal(1, stats.Produced)
	s.Equal(1, stats.Failed)
}

func (s *ProducerTestSuite) TestRunTick_ListError() {
	ctx := context.Background()

	s.channels.EXPECT().ListActive(ctx).Return(nil, errors.New("db down"))

	stats, err := s.producer.RunTick(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "list active channels")
}

func (s *ProducerTestSuite) TestProduceNow_IgnoresCadenceButNotBudget() {
	ctx := context.Background()
	justNow := time.Now().UTC().Add(-time.Minute)

	ch := s.activeChannel()
	ch.LastProducedAt = &justNow // far from due at 2/day
	artifact := &domain.Artifact{Reference: "ref", CostCents: 32, ProducedAt: time.Now().UTC()}

	s.channels.EXPECT().Get(gomock.Any(), "ch1").Return(&ch, nil).Times(2)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))
	s.leases.EXPECT().TryAcquire(gomock.Any(), "ch1", testHolder, s.cfg.MaxProductionTime).Return(true, false, nil)
	s.pipeline.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(artifact, nil)
	s.expectTxPassthrough()
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.channels.EXPECT().AdvanceCursor(gomock.Any(), "ch1", artifact.ProducedAt, int64(32)).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), artifact).Return(nil)
	s.leases.EXPECT().Release(gomock.Any(), "ch1", testHolder).Return(nil)

	outcome, err := s.producer.ProduceNow(ctx, "ch1")

	s.NoError(err)
	s.Equal(domain.OutcomeSucceeded, outcome)
}

func (s *ProducerTestSuite) TestProduceNow_StillOverBudget() {
	ctx := context.Background()

	ch := s.activeChannel()
	ch.TodayCostCents = 100

	s.channels.EXPECT().Get(ctx, "ch1").Return(&ch, nil)
	s.pipeline.EXPECT().EstimateCost(gomock.Any()).Return(int64(32))

	outcome, err := s.producer.ProduceNow(ctx, "ch1")

	s.NoError(err)
	s.Equal(domain.OutcomeOverBudget, outcome)
}

func (s *ProducerTestSuite) TestProduceNow_RejectsInactiveChannel() {
	ctx := context.Background()

	ch := s.activeChannel()
	ch.Status = domain.StatusPaused

	s.channels.EXPECT().Get(ctx, "ch1").Return(&ch, nil)

	_, err := s.producer.ProduceNow(ctx, "ch1")

	s.Error(err)
	s.Contains(err.Error(), "not active")
}
