// Package drawrouter wires the draw module's event handlers onto the
// watermill router.
package drawrouter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawhandlers "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/handlers"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// DrawRouter binds draw lifecycle topics to their handlers.
type DrawRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	helper     utils.Helpers
	tracer     trace.Tracer

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewDrawRouter creates a new DrawRouter.
func NewDrawRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	helper utils.Helpers,
	tracer trace.Tracer,
	registry *prometheus.Registry,
) *DrawRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil && !inTestEnv {
		b := metrics.NewPrometheusMetricsBuilder(registry, "", "")
		metricsBuilder = &b
	}

	return &DrawRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		helper:         helper,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure installs middleware and registers the handlers.
func (r *DrawRouter) Configure(ctx context.Context, handlers drawhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3}.Middleware,
	)

	return r.RegisterHandlers(ctx, handlers)
}

// RegisterHandlers binds each lifecycle topic to its handler. Returned
// messages carry their destination topic in metadata, so the handler
// wrapper publishes them itself instead of using a fixed publish
// topic.
func (r *DrawRouter) RegisterHandlers(ctx context.Context, handlers drawhandlers.Handlers) error {
	eventsToHandlers := map[string]message.HandlerFunc{
		drawevents.RoundLockRequestedV1:    handlers.HandleRoundLockRequested,
		drawevents.RoundDrawRequestedV1:    handlers.HandleRoundDrawRequested,
		drawevents.RoundPayoutRequestedV1:  handlers.HandleRoundPayoutRequested,
		drawevents.RoundArchiveRequestedV1: handlers.HandleRoundArchiveRequested,
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("draw.%s", topic)
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "Error processing message",
						attr.String("message_id", msg.UUID),
						attr.Error(err),
					)
					return nil, err
				}
				for _, m := range messages {
					publishTopic := m.Metadata.Get(utils.TopicMetadataKey)
					if publishTopic == "" {
						r.logger.Error("Failed to resolve publish topic, message dropped",
							attr.String("handler", handlerName),
							attr.String("message_id", m.UUID),
						)
						continue
					}
					if err := r.publisher.Publish(publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

// Close shuts the underlying router down.
func (r *DrawRouter) Close() error {
	return r.Router.Close()
}
