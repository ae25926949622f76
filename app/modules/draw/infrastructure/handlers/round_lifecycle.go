package drawhandlers

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
)

// HandleRoundLockRequested freezes the entry set when the lock job
// fires.
func (h *DrawHandlers) HandleRoundLockRequested(msg *message.Message) ([]*message.Message, error) {
	wrapped := h.handlerWrapper(
		"HandleRoundLockRequested",
		&drawevents.RoundLockRequestedPayload{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			p := payload.(*drawevents.RoundLockRequestedPayload)

			result, err := h.service.LockRound(ctx, p.RoundID)
			if err != nil {
				return nil, err
			}
			if result.IsFailure() {
				return h.transitionFailed(msg, *result.Failure, "lock")
			}
			// Outcome events are published by the service after commit.
			return nil, nil
		},
	)
	return wrapped(msg)
}

// HandleRoundDrawRequested runs the draw when the draw job fires.
func (h *DrawHandlers) HandleRoundDrawRequested(msg *message.Message) ([]*message.Message, error) {
	wrapped := h.handlerWrapper(
		"HandleRoundDrawRequested",
		&drawevents.RoundDrawRequestedPayload{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			p := payload.(*drawevents.RoundDrawRequestedPayload)

			result, err := h.service.DrawRound(ctx, p.RoundID)
			if err != nil {
				return nil, err
			}
			if result.IsFailure() {
				// Integrity faults already went out on their own topic;
				// they still stop the pipeline here.
				return h.transitionFailed(msg, *result.Failure, "draw")
			}
			return nil, nil
		},
	)
	return wrapped(msg)
}

// HandleRoundPayoutRequested distributes the pool when the payout job
// fires.
func (h *DrawHandlers) HandleRoundPayoutRequested(msg *message.Message) ([]*message.Message, error) {
	wrapped := h.handlerWrapper(
		"HandleRoundPayoutRequested",
		&drawevents.RoundPayoutRequestedPayload{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			p := payload.(*drawevents.RoundPayoutRequestedPayload)

			result, err := h.service.PayoutRound(ctx, p.RoundID)
			if err != nil {
				return nil, err
			}
			if result.IsFailure() {
				return h.transitionFailed(msg, *result.Failure, "payout")
			}
			return nil, nil
		},
	)
	return wrapped(msg)
}

// HandleRoundArchiveRequested closes the round out when the archive
// job fires.
func (h *DrawHandlers) HandleRoundArchiveRequested(msg *message.Message) ([]*message.Message, error) {
	wrapped := h.handlerWrapper(
		"HandleRoundArchiveRequested",
		&drawevents.RoundArchiveRequestedPayload{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			p := payload.(*drawevents.RoundArchiveRequestedPayload)

			result, err := h.service.ArchiveRound(ctx, p.RoundID)
			if err != nil {
				return nil, err
			}
			if result.IsFailure() {
				return h.transitionFailed(msg, *result.Failure, "archive")
			}
			return nil, nil
		},
	)
	return wrapped(msg)
}

// transitionFailed builds the failure event for a rejected lifecycle
// step. The message is routed to the failure topic via its metadata.
func (h *DrawHandlers) transitionFailed(msg *message.Message, failure drawservice.Failure, attempted string) ([]*message.Message, error) {
	failureMsg, err := h.helpers.CreateResultMessage(msg, drawevents.RoundTransitionFailedPayload{
		RoundID:   failure.RoundID,
		FromState: failure.FromState,
		Attempted: attempted,
		Reason:    failure.Reason,
	}, drawevents.RoundTransitionFailedV1)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition-failed message: %w", err)
	}
	return []*message.Message{failureMsg}, nil
}
