package drawqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/types"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

// The workers only translate a due job into a *.requested event; the
// watermill handlers own the actual transition. Keeping the workers
// dumb means River retries re-publish a request instead of re-running
// business logic.

// publishRequest emits one lifecycle request event.
func publishRequest(ctx context.Context, logger *slog.Logger, bus eventbus.EventBus, helpers utils.Helpers, topic string, payload any, roundID types.RoundID) error {
	msg, err := helpers.CreateNewMessage(payload, topic)
	if err != nil {
		return fmt.Errorf("failed to create message for %s: %w", topic, err)
	}
	if err := bus.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	logger.InfoContext(ctx, "Lifecycle request published",
		attr.String("topic", topic),
		attr.String("round_id", roundID.String()),
	)
	return nil
}

// RoundLockWorker publishes the lock request when its job comes due.
type RoundLockWorker struct {
	river.WorkerDefaults[RoundLockJob]
	logger   *slog.Logger
	eventBus eventbus.EventBus
	helpers  utils.Helpers
}

// NewRoundLockWorker creates a new RoundLockWorker.
func NewRoundLockWorker(logger *slog.Logger, bus eventbus.EventBus, helpers utils.Helpers) *RoundLockWorker {
	return &RoundLockWorker{logger: logger, eventBus: bus, helpers: helpers}
}

func (w *RoundLockWorker) Work(ctx context.Context, job *river.Job[RoundLockJob]) error {
	return publishRequest(ctx, w.logger, w.eventBus, w.helpers, drawevents.RoundLockRequestedV1,
		drawevents.RoundLockRequestedPayload{RoundID: job.Args.RoundID}, job.Args.RoundID)
}

// RoundDrawWorker publishes the draw request when its job comes due.
type RoundDrawWorker struct {
	river.WorkerDefaults[RoundDrawJob]
	logger   *slog.Logger
	eventBus eventbus.EventBus
	helpers  utils.Helpers
}

// NewRoundDrawWorker creates a new RoundDrawWorker.
func NewRoundDrawWorker(logger *slog.Logger, bus eventbus.EventBus, helpers utils.Helpers) *RoundDrawWorker {
	return &RoundDrawWorker{logger: logger, eventBus: bus, helpers: helpers}
}

func (w *RoundDrawWorker) Work(ctx context.Context, job *river.Job[RoundDrawJob]) error {
	return publishRequest(ctx, w.logger, w.eventBus, w.helpers, drawevents.RoundDrawRequestedV1,
		drawevents.RoundDrawRequestedPayload{RoundID: job.Args.RoundID}, job.Args.RoundID)
}

// RoundPayoutWorker publishes the payout request when its job comes
// due.
type RoundPayoutWorker struct {
	river.WorkerDefaults[RoundPayoutJob]
	logger   *slog.Logger
	eventBus eventbus.EventBus
	helpers  utils.Helpers
}

// NewRoundPayoutWorker creates a new RoundPayoutWorker.
func NewRoundPayoutWorker(logger *slog.Logger, bus eventbus.EventBus, helpers utils.Helpers) *RoundPayoutWorker {
	return &RoundPayoutWorker{logger: logger, eventBus: bus, helpers: helpers}
}

func (w *RoundPayoutWorker) Work(ctx context.Context, job *river.Job[RoundPayoutJob]) error {
	return publishRequest(ctx, w.logger, w.eventBus, w.helpers, drawevents.RoundPayoutRequestedV1,
		drawevents.RoundPayoutRequestedPayload{RoundID: job.Args.RoundID}, job.Args.RoundID)
}

// RoundArchiveWorker publishes the archive request when its job comes
// due.
type RoundArchiveWorker struct {
	river.WorkerDefaults[RoundArchiveJob]
	logger   *slog.Logger
	eventBus eventbus.EventBus
	helpers  utils.Helpers
}

// NewRoundArchiveWorker creates a new RoundArchiveWorker.
func NewRoundArchiveWorker(logger *slog.Logger, bus eventbus.EventBus, helpers utils.Helpers) *RoundArchiveWorker {
	return &RoundArchiveWorker{logger: logger, eventBus: bus, helpers: helpers}
}

func (w *RoundArchiveWorker) Work(ctx context.Context, job *river.Job[RoundArchiveJob]) error {
	return publishRequest(ctx, w.logger, w.eventBus, w.helpers, drawevents.RoundArchiveRequestedV1,
		drawevents.RoundArchiveRequestedPayload{RoundID: job.Args.RoundID}, job.Args.RoundID)
}
