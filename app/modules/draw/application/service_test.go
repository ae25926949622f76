package drawservice

import (
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/internal/observability"
	"github.com/civic-spark/rewards-backend/internal/observability/metrics"
	"github.com/civic-spark/rewards-backend/internal/utils"
)

// testNow is the frozen clock every service test runs against.
var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func testDrawConfig() config.DrawConfig {
	return config.DrawConfig{
		EntryCost:            50,
		TierSplits:           []int{40, 20, 10},
		CommunitySplit:       20,
		PlatformSplit:        10,
		MaxEntriesPerUser:    3,
		OpenDuration:         time.Hour,
		DrawDelay:            10 * time.Minute,
		PayoutDelay:          5 * time.Minute,
		ArchiveDelay:         24 * time.Hour,
		PayoutMaxAttempts:    2,
		PayoutBackoffInitial: time.Millisecond,
	}
}

type testEnv struct {
	service   *DrawService
	repo      *FakeDrawRepository
	wallet    *FakeWalletService
	scheduler *FakeScheduler
	bus       *FakeEventBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := NewFakeDrawRepository()
	wallet := NewFakeWalletService()
	scheduler := &FakeScheduler{}
	bus := &FakeEventBus{}

	s := NewDrawService(
		nil,
		repo,
		wallet,
		scheduler,
		bus,
		utils.NewHelpers(),
		observability.NoOpLogger,
		&metrics.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
		testDrawConfig(),
	)
	s.now = func() time.Time { return testNow }

	return &testEnv{
		service:   s,
		repo:      repo,
		wallet:    wallet,
		scheduler: scheduler,
		bus:       bus,
	}
}
