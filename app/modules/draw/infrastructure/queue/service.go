// Package drawqueue schedules the deferred lifecycle steps of a round
// on River. Each job publishes a *.requested event at its due time;
// the watermill handlers do the actual work.
package drawqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/types"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

const queueName = "draw"

// Service schedules round lifecycle jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

var _ drawservice.Scheduler = (*Service)(nil)

// NewService creates the River-backed scheduler. River needs its own
// pgx pool; bun keeps the database/sql one.
func NewService(ctx context.Context, logger *slog.Logger, dsn string, m metrics.OperationMetrics, bus eventbus.EventBus, helpers utils.Helpers) (*Service, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRoundLockWorker(logger, bus, helpers))
	river.AddWorker(workers, NewRoundDrawWorker(logger, bus, helpers))
	river.AddWorker(workers, NewRoundPayoutWorker(logger, bus, helpers))
	river.AddWorker(workers, NewRoundArchiveWorker(logger, bus, helpers))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			queueName:          {MaxWorkers: 5},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{
		client:  client,
		pool:    pool,
		logger:  logger,
		metrics: m,
	}, nil
}

// Start starts the job workers.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Draw queue service started")
	return nil
}

// Stop stops the job workers and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "Draw queue service stopped")
	return nil
}

// HealthCheck verifies the queue's database connection.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ScheduleLock books the lock step for a round.
func (s *Service) ScheduleLock(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return s.schedule(ctx, "ScheduleLock", RoundLockJob{RoundID: roundID}, roundID, at)
}

// ScheduleDraw books the draw step for a round.
func (s *Service) ScheduleDraw(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return s.schedule(ctx, "ScheduleDraw", RoundDrawJob{RoundID: roundID}, roundID, at)
}

// SchedulePayout books the payout step for a round.
func (s *Service) SchedulePayout(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return s.schedule(ctx, "SchedulePayout", RoundPayoutJob{RoundID: roundID}, roundID, at)
}

// ScheduleArchive books the archive step for a round.
func (s *Service) ScheduleArchive(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return s.schedule(ctx, "ScheduleArchive", RoundArchiveJob{RoundID: roundID}, roundID, at)
}

// schedule inserts one job. ByArgs uniqueness makes re-scheduling the
// same step for the same round a no-op, so replays are safe.
func (s *Service) schedule(ctx context.Context, operation string, args river.JobArgs, roundID types.RoundID, at time.Time) error {
	s.metrics.RecordOperationAttempt(ctx, operation, "river")
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operation, "river", time.Since(start))
	}()

	res, err := s.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       queueName,
		ScheduledAt: at,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, operation, "river")
		return fmt.Errorf("failed to schedule %s: %w", args.Kind(), err)
	}

	s.metrics.RecordOperationSuccess(ctx, operation, "river")
	s.logger.InfoContext(ctx, "Lifecycle job scheduled",
		attr.String("kind", args.Kind()),
		attr.String("round_id", roundID.String()),
		attr.Any("scheduled_at", at),
		attr.Int64("job_id", res.Job.ID),
	)
	return nil
}
