// Package app wires the rewards backend together: database, event
// bus, watermill router, modules, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civic-spark/rewards-backend/app/modules/draw"
	"github.com/civic-spark/rewards-backend/app/modules/wallet"
	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/db/bundb"
	"github.com/civic-spark/rewards-backend/internal/eventbus"
	"github.com/civic-spark/rewards-backend/internal/observability"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/utils"
	"github.com/civic-spark/rewards-backend/pkg/jwt"
)

// App is the assembled rewards backend.
type App struct {
	Config        *config.Config
	Observability *observability.Observability

	DBService    *bundb.DBService
	EventBus     eventbus.EventBus
	Router       *message.Router
	WalletModule *wallet.Module
	DrawModule   *draw.Module

	httpServer *http.Server
	cancelFunc context.CancelFunc
}

// NewApp initializes the application.
func NewApp(ctx context.Context, cfg *config.Config, obs *observability.Observability) (*App, error) {
	logger := obs.Provider.Logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	bus, err := eventbus.NewJetStreamEventBus(cfg.NATS.URL, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	helpers := utils.NewHelpers()
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.DefaultTTL)

	httpRouter := chi.NewRouter()
	httpRouter.Use(chimiddleware.RequestID)
	httpRouter.Use(chimiddleware.RealIP)
	httpRouter.Use(chimiddleware.Recoverer)
	httpRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpRouter.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(obs.Registry.Prometheus, promhttp.HandlerOpts{}))

	walletModule, err := wallet.NewModule(ctx, cfg, *obs, dbService.GetDB(), bus, helpers, jwtService, httpRouter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wallet module: %w", err)
	}

	drawModule, err := draw.NewModule(ctx, cfg, *obs, dbService.GetDB(), bus, router, helpers, walletModule.WalletService, jwtService, httpRouter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize draw module: %w", err)
	}

	return &App{
		Config:        cfg,
		Observability: obs,
		DBService:     dbService,
		EventBus:      bus,
		Router:        router,
		WalletModule:  walletModule,
		DrawModule:    drawModule,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           httpRouter,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run starts the watermill router, the job workers, and the HTTP
// server, then blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Provider.Logger

	ctx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("watermill router: %w", err)
		}
	}()

	wg.Add(1)
	go a.WalletModule.Run(ctx, &wg)

	wg.Add(1)
	go func() {
		if err := a.DrawModule.Run(ctx, &wg); err != nil {
			errCh <- fmt.Errorf("draw module: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.InfoContext(ctx, "HTTP server listening", attr.String("address", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		wg.Wait()
		return nil
	}
}

// Close shuts everything down in reverse dependency order.
func (a *App) Close() error {
	logger := a.Observability.Provider.Logger
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.cancelFunc != nil {
		a.cancelFunc()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server", attr.Error(err))
	}
	if err := a.DrawModule.Close(); err != nil {
		logger.Error("Failed to close draw module", attr.Error(err))
	}
	if err := a.WalletModule.Close(); err != nil {
		logger.Error("Failed to close wallet module", attr.Error(err))
	}
	if err := a.Router.Close(); err != nil {
		logger.Error("Failed to close watermill router", attr.Error(err))
	}
	if err := a.EventBus.Close(); err != nil {
		logger.Error("Failed to close event bus", attr.Error(err))
	}
	if err := a.DBService.Close(); err != nil {
		logger.Error("Failed to close database", attr.Error(err))
	}
	return nil
}
