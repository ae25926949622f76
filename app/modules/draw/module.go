// Package draw assembles the prize-draw module: service, scheduler,
// event router, and REST surface.
package draw

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	drawhandlers "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/handlers"
	drawhttp "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/http"
	drawqueue "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/queue"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	drawrouter "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/router"
	walletservice "github.com/civic-spark/rewards-backend/app/modules/wallet/application"
	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/httpmw"
	"github.com/civic-spark/rewards-backend/internal/observability"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/utils"
	"github.com/civic-spark/rewards-backend/pkg/jwt"
)

// Module represents the draw module.
type Module struct {
	DrawService drawservice.Service
	Queue       *drawqueue.Service
	Router      *drawrouter.DrawRouter
	cancelFunc  context.CancelFunc
}

// NewModule creates a new draw module: repository, River scheduler,
// service, watermill handlers, and HTTP routes.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	bus eventbus.EventBus,
	router *message.Router,
	helpers utils.Helpers,
	wallet walletservice.Service,
	jwtService jwt.Service,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "Initializing draw module")

	repo := drawdb.NewRepository()
	m := metrics.NewPrometheusMetrics(obs.Registry.Prometheus, "draw")

	queue, err := drawqueue.NewService(ctx, logger, cfg.Postgres.DSN, m, bus, helpers)
	if err != nil {
		return nil, fmt.Errorf("failed to create draw queue service: %w", err)
	}

	service := drawservice.NewDrawService(db, repo, wallet, queue, bus, helpers, logger, m, tracer, cfg.Draw)

	handlers := drawhandlers.NewDrawHandlers(service, logger, tracer, helpers, m)
	drawRouter := drawrouter.NewDrawRouter(logger, router, bus, bus, helpers, tracer, obs.Registry.Prometheus)
	if err := drawRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure draw router: %w", err)
	}

	if httpRouter != nil {
		httpHandlers := drawhttp.NewHandlers(service, logger)
		limiter := httpmw.NewIPRateLimiter(10, 20)
		httpRouter.Route("/api/draw", func(r chi.Router) {
			r.Use(httpmw.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimitMiddleware(limiter))

			// Public round state.
			r.Get("/rounds/{roundID}", httpHandlers.HandleGetRound)
			r.Get("/rounds/{roundID}/winners", httpHandlers.HandleGetRoundWinners)

			// Citizen actions.
			r.Group(func(r chi.Router) {
				r.Use(httpmw.AuthMiddleware(jwtService))
				r.Post("/rounds/{roundID}/entries", httpHandlers.HandleEnterRound)
			})

			// Operator actions.
			r.Group(func(r chi.Router) {
				r.Use(httpmw.AuthMiddleware(jwtService))
				r.Use(httpmw.RequireRole(jwt.RoleOperator))
				r.Post("/rounds", httpHandlers.HandleOpenRound)
				r.Post("/rounds/{roundID}/cancel", httpHandlers.HandleCancelRound)
			})
		})
	}

	return &Module{
		DrawService: service,
		Queue:       queue,
		Router:      drawRouter,
	}, nil
}

// Run starts the job workers and keeps the module alive until the
// context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.Queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start draw queue: %w", err)
	}

	<-ctx.Done()
	return nil
}

// Close stops the workers and the module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return m.Queue.Stop(context.Background())
}
