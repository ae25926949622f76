// Package drawservice implements the prize-draw lifecycle: opening
// rounds, registering entries, the commit-reveal draw, and payout
// distribution.
package drawservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	walletservice "github.com/civic-spark/rewards-backend/app/modules/wallet/application"
	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/utils"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
)

const serviceName = "DrawService"

// Ledger accounts for the non-winner shares of the pool.
const (
	communityAccountID = "account:community"
	platformAccountID  = "account:platform"
)

// DrawService implements the Service interface.
type DrawService struct {
	db        *bun.DB
	repo      drawdb.Repository
	wallet    walletservice.Service
	scheduler Scheduler
	eventBus  eventbus.EventBus
	helpers   utils.Helpers
	logger    *slog.Logger
	metrics   metrics.OperationMetrics
	tracer    trace.Tracer
	cfg       config.DrawConfig
	split     drawdomain.PayoutSplit
	// now is swappable in tests.
	now func() time.Time
}

var _ Service = (*DrawService)(nil)

// NewDrawService creates a new DrawService.
func NewDrawService(
	db *bun.DB,
	repo drawdb.Repository,
	wallet walletservice.Service,
	scheduler Scheduler,
	eventBus eventbus.EventBus,
	helpers utils.Helpers,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	cfg config.DrawConfig,
) *DrawService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = &metrics.NoOpMetrics{}
	}
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}
	return &DrawService{
		db:        db,
		repo:      repo,
		wallet:    wallet,
		scheduler: scheduler,
		eventBus:  eventBus,
		helpers:   helpers,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		cfg:       cfg,
		split: drawdomain.PayoutSplit{
			TierPercents:     cfg.TierSplits,
			CommunityPercent: cfg.CommunitySplit,
			PlatformPercent:  cfg.PlatformSplit,
		},
		now: time.Now,
	}
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps an operation with tracing, metrics, logging, and
// panic recovery.
func withTelemetry[S any, F any](
	s *DrawService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("identifier", identifier),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)

	return result, nil
}

// runInTx runs the operation inside one transaction. With a nil db the
// operation runs on a nil handle, which is the unit-test path.
func runInTx[S any, F any](
	s *DrawService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}

// publishEvent emits a lifecycle event after the owning transaction has
// committed. The database rows are the source of truth; a dropped
// event only costs observers a notification.
func (s *DrawService) publishEvent(ctx context.Context, topic string, payload any) {
	if s.eventBus == nil {
		return
	}
	msg, err := s.helpers.CreateNewMessage(payload, topic)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build event", attr.Error(err), attr.String("topic", topic))
		return
	}
	if err := s.eventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", attr.Error(err), attr.String("topic", topic))
	}
}

// tiers is the number of prize tiers the configured split defines.
func (s *DrawService) tiers() int { return s.split.Tiers() }
