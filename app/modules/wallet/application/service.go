// Package walletservice implements the token ledger operations.
package walletservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	walletevents "github.com/civic-spark/rewards-backend/app/modules/wallet/events"
	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/types"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

const serviceName = "WalletService"

// WalletService implements Service on the bun repository.
type WalletService struct {
	db       *bun.DB
	repo     walletdb.Repository
	eventBus eventbus.EventBus
	helpers  utils.Helpers
	logger   *slog.Logger
	metrics  metrics.OperationMetrics
	tracer   trace.Tracer
}

var _ Service = (*WalletService)(nil)

// NewWalletService creates a new WalletService.
func NewWalletService(
	db *bun.DB,
	repo walletdb.Repository,
	eventBus eventbus.EventBus,
	helpers utils.Helpers,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = &metrics.NoOpMetrics{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &WalletService{
		db:       db,
		repo:     repo,
		eventBus: eventBus,
		helpers:  helpers,
		logger:   logger,
		metrics:  m,
		tracer:   tracer,
	}
}

// Debit removes tokens from a wallet on the given handle.
func (s *WalletService) Debit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error) {
	ctx, span := s.tracer.Start(ctx, "Debit", trace.WithAttributes(
		attribute.String("user_id", string(userID)),
		attribute.Int64("amount", int64(amount)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, "Debit", serviceName)
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, "Debit", serviceName, time.Since(start))
	}()

	balance, err := s.repo.Debit(ctx, s.handle(db), userID, amount, reason, idempotencyKey)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "Debit", serviceName)
		span.RecordError(err)
		return 0, err
	}

	s.metrics.RecordOperationSuccess(ctx, "Debit", serviceName)
	s.logger.InfoContext(ctx, "Wallet debited",
		attr.ExtractCorrelationID(ctx),
		attr.String("user_id", string(userID)),
		attr.Int64("amount", int64(amount)),
		attr.Int64("new_balance", int64(balance)),
		attr.String("reason", reason),
	)

	// Only publish when running standalone: inside a caller's
	// transaction the outcome is not committed yet, and the caller
	// emits its own event after commit.
	if db == nil {
		s.publishLedgerEvent(ctx, walletevents.WalletDebitedV1, walletevents.WalletDebitedPayload{
			UserID:     userID,
			Amount:     amount,
			Reason:     reason,
			NewBalance: balance,
		})
	}

	return balance, nil
}

// Credit adds tokens to a wallet on the given handle.
func (s *WalletService) Credit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, bool, error) {
	ctx, span := s.tracer.Start(ctx, "Credit", trace.WithAttributes(
		attribute.String("user_id", string(userID)),
		attribute.Int64("amount", int64(amount)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, "Credit", serviceName)
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, "Credit", serviceName, time.Since(start))
	}()

	balance, applied, err := s.repo.Credit(ctx, s.handle(db), userID, amount, reason, idempotencyKey)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "Credit", serviceName)
		span.RecordError(err)
		return 0, false, fmt.Errorf("failed to credit wallet: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "Credit", serviceName)
	if !applied {
		s.logger.InfoContext(ctx, "Wallet credit replayed, no change",
			attr.ExtractCorrelationID(ctx),
			attr.String("user_id", string(userID)),
			attr.String("idempotency_key", idempotencyKey),
		)
		return balance, false, nil
	}

	s.logger.InfoContext(ctx, "Wallet credited",
		attr.ExtractCorrelationID(ctx),
		attr.String("user_id", string(userID)),
		attr.Int64("amount", int64(amount)),
		attr.Int64("new_balance", int64(balance)),
		attr.String("reason", reason),
	)

	if db == nil {
		s.publishLedgerEvent(ctx, walletevents.WalletCreditedV1, walletevents.WalletCreditedPayload{
			UserID:     userID,
			Amount:     amount,
			Reason:     reason,
			NewBalance: balance,
		})
	}

	return balance, true, nil
}

// GetWallet returns the wallet with lifetime totals.
func (s *WalletService) GetWallet(ctx context.Context, userID types.UserID) (*walletdb.Wallet, error) {
	ctx, span := s.tracer.Start(ctx, "GetWallet")
	defer span.End()

	wallet, err := s.repo.GetWallet(ctx, s.db, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return wallet, nil
}

func (s *WalletService) handle(db bun.IDB) bun.IDB {
	if db != nil {
		return db
	}
	return s.db
}

// publishLedgerEvent emits a ledger notification. Publishing is best
// effort: the ledger row is the source of truth, a dropped event only
// costs an observer a notification.
func (s *WalletService) publishLedgerEvent(ctx context.Context, topic string, payload any) {
	if s.eventBus == nil {
		return
	}
	msg, err := s.helpers.CreateNewMessage(payload, topic)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build ledger event", attr.Error(err), attr.String("topic", topic))
		return
	}
	if err := s.eventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event", attr.Error(err), attr.String("topic", topic))
	}
}
