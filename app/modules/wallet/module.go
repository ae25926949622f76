// Package wallet assembles the token-ledger module.
package wallet

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	walletservice "github.com/civic-spark/rewards-backend/app/modules/wallet/application"
	wallethttp "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/http"
	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/httpmw"
	"github.com/civic-spark/rewards-backend/internal/observability"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/utils"
	"github.com/civic-spark/rewards-backend/pkg/jwt"
)

// Module represents the wallet module.
type Module struct {
	WalletService walletservice.Service
	Repo          walletdb.Repository
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewModule creates a new wallet module and registers its HTTP route.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	bus eventbus.EventBus,
	helpers utils.Helpers,
	jwtService jwt.Service,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "Initializing wallet module")

	repo := walletdb.NewRepository()
	m := metrics.NewPrometheusMetrics(obs.Registry.Prometheus, "wallet")
	service := walletservice.NewWalletService(db, repo, bus, helpers, logger, m, tracer)

	if httpRouter != nil {
		handlers := wallethttp.NewHandlers(service, logger)
		limiter := httpmw.NewIPRateLimiter(10, 20)
		httpRouter.Route("/api/wallet", func(r chi.Router) {
			r.Use(httpmw.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimitMiddleware(limiter))
			r.Use(httpmw.AuthMiddleware(jwtService))
			r.Get("/", handlers.HandleGetWallet)
		})
	}

	return &Module{
		WalletService: service,
		Repo:          repo,
		observability: obs,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
}

// Close stops the module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
