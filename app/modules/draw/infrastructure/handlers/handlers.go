// Package drawhandlers consumes the scheduled lifecycle events and
// drives the draw service.
package drawhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

const handlerService = "DrawHandlers"

// Handlers is the draw module's event-handler contract; the router
// binds each method to its topic.
type Handlers interface {
	HandleRoundLockRequested(msg *message.Message) ([]*message.Message, error)
	HandleRoundDrawRequested(msg *message.Message) ([]*message.Message, error)
	HandleRoundPayoutRequested(msg *message.Message) ([]*message.Message, error)
	HandleRoundArchiveRequested(msg *message.Message) ([]*message.Message, error)
}

// DrawHandlers handles draw lifecycle events.
type DrawHandlers struct {
	service        drawservice.Service
	logger         *slog.Logger
	tracer         trace.Tracer
	metrics        metrics.OperationMetrics
	helpers        utils.Helpers
	handlerWrapper func(handlerName string, unmarshalTo interface{}, handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error)) message.HandlerFunc
}

// NewDrawHandlers creates a new DrawHandlers.
func NewDrawHandlers(
	service drawservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
	helpers utils.Helpers,
	m metrics.OperationMetrics,
) Handlers {
	return &DrawHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
		helpers: helpers,
		metrics: m,
		handlerWrapper: func(handlerName string, unmarshalTo interface{}, handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error)) message.HandlerFunc {
			return handlerWrapper(handlerName, unmarshalTo, handlerFunc, logger, m, tracer, helpers)
		},
	}
}

// handlerWrapper handles common tracing, logging, and metrics for
// handlers.
func handlerWrapper(
	handlerName string,
	unmarshalTo interface{},
	handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error),
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	helpers utils.Helpers,
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := tracer.Start(msg.Context(), handlerName)
		defer span.End()

		m.RecordOperationAttempt(ctx, handlerName, handlerService)

		startTime := time.Now()
		defer func() {
			m.RecordOperationDuration(ctx, handlerName, handlerService, time.Since(startTime))
		}()

		logger.InfoContext(ctx, handlerName+" triggered",
			attr.CorrelationIDFromMsg(msg),
			attr.String("message_id", msg.UUID),
		)

		payloadInstance := unmarshalTo
		if payloadInstance != nil {
			if err := helpers.UnmarshalPayload(msg, payloadInstance); err != nil {
				logger.ErrorContext(ctx, "Failed to unmarshal payload",
					attr.CorrelationIDFromMsg(msg),
					attr.Error(err),
				)
				m.RecordOperationFailure(ctx, handlerName, handlerService)
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		result, err := handlerFunc(ctx, msg, payloadInstance)
		if err != nil {
			logger.ErrorContext(ctx, "Error in "+handlerName,
				attr.CorrelationIDFromMsg(msg),
				attr.Error(err),
			)
			m.RecordOperationFailure(ctx, handlerName, handlerService)
			return nil, err
		}

		logger.InfoContext(ctx, handlerName+" completed successfully", attr.CorrelationIDFromMsg(msg))
		m.RecordOperationSuccess(ctx, handlerName, handlerService)
		return result, nil
	}
}
