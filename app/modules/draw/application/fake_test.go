package drawservice

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	walletservice "github.com/civic-spark/rewards-backend/app/modules/wallet/application"
	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// ------------------------
// Fake Draw Repo
// ------------------------

// FakeDrawRepository provides a programmable stub for the
// drawdb.Repository interface.
type FakeDrawRepository struct {
	trace []string

	CreateRoundFunc         func(ctx context.Context, db bun.IDB, round *drawdb.Round, seed string) error
	GetRoundFunc            func(ctx context.Context, db bun.IDB, roundID types.RoundID) (*drawdb.Round, error)
	GetRoundForUpdateFunc   func(ctx context.Context, db bun.IDB, roundID types.RoundID) (*drawdb.Round, error)
	GetSeedFunc             func(ctx context.Context, db bun.IDB, roundID types.RoundID) (string, error)
	MarkLockedFunc          func(ctx context.Context, db bun.IDB, roundID types.RoundID, entriesDigest string, lockedAt time.Time) error
	MarkDrawnFunc           func(ctx context.Context, db bun.IDB, roundID types.RoundID, revealedSeed string, drawnAt time.Time) error
	MarkPaidFunc            func(ctx context.Context, db bun.IDB, roundID types.RoundID, paidAt time.Time, rolloverAvailable bool) error
	MarkArchivedFunc        func(ctx context.Context, db bun.IDB, roundID types.RoundID, archivedAt time.Time) error
	MarkCancelledFunc       func(ctx context.Context, db bun.IDB, roundID types.RoundID, cancelledAt time.Time) error
	InsertEntryFunc         func(ctx context.Context, db bun.IDB, entry *drawdb.Entry) error
	ListEntriesFunc         func(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]drawdb.Entry, error)
	CountEntriesForUserFunc func(ctx context.Context, db bun.IDB, roundID types.RoundID, userID types.UserID) (int, error)
	IncrementPoolFunc       func(ctx context.Context, db bun.IDB, roundID types.RoundID, amount types.TokenAmount) (types.TokenAmount, error)
	InsertWinnersFunc       func(ctx context.Context, db bun.IDB, winners []drawdb.Winner) error
	ListWinnersFunc         func(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]drawdb.Winner, error)
	MarkWinnerPaidFunc      func(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error
	ClaimRolloverFunc       func(ctx context.Context, db bun.IDB) (types.TokenAmount, error)
}

// NewFakeDrawRepository initializes a new FakeDrawRepository with an
// empty trace.
func NewFakeDrawRepository() *FakeDrawRepository {
	return &FakeDrawRepository{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeDrawRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeDrawRepository) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeDrawRepository) CreateRound(ctx context.Context, db bun.IDB, round *drawdb.Round, seed string) error {
	f.record("CreateRound")
	if f.CreateRoundFunc != nil {
		return f.CreateRoundFunc(ctx, db, round, seed)
	}
	return nil
}

func (f *FakeDrawRepository) GetRound(ctx context.Context, db bun.IDB, roundID types.RoundID) (*drawdb.Round, error) {
	f.record("GetRound")
	if f.GetRoundFunc != nil {
		return f.GetRoundFunc(ctx, db, roundID)
	}
	return nil, drawdb.ErrNotFound
}

func (f *FakeDrawRepository) GetRoundForUpdate(ctx context.Context, db bun.IDB, roundID types.RoundID) (*drawdb.Round, error) {
	f.record("GetRoundForUpdate")
	if f.GetRoundForUpdateFunc != nil {
		return f.GetRoundForUpdateFunc(ctx, db, roundID)
	}
	return nil, drawdb.ErrNotFound
}

func (f *FakeDrawRepository) GetSeed(ctx context.Context, db bun.IDB, roundID types.RoundID) (string, error) {
	f.record("GetSeed")
	if f.GetSeedFunc != nil {
		return f.GetSeedFunc(ctx, db, roundID)
	}
	return "", drawdb.ErrNotFound
}

func (f *FakeDrawRepository) MarkLocked(ctx context.Context, db bun.IDB, roundID types.RoundID, entriesDigest string, lockedAt time.Time) error {
	f.record("MarkLocked")
	if f.MarkLockedFunc != nil {
		return f.MarkLockedFunc(ctx, db, roundID, entriesDigest, lockedAt)
	}
	return nil
}

func (f *FakeDrawRepository) MarkDrawn(ctx context.Context, db bun.IDB, roundID types.RoundID, revealedSeed string, drawnAt time.Time) error {
	f.record("MarkDrawn")
	if f.MarkDrawnFunc != nil {
		return f.MarkDrawnFunc(ctx, db, roundID, revealedSeed, drawnAt)
	}
	return nil
}

func (f *FakeDrawRepository) MarkPaid(ctx context.Context, db bun.IDB, roundID types.RoundID, paidAt time.Time, rolloverAvailable bool) error {
	f.record("MarkPaid")
	if f.MarkPaidFunc != nil {
		return f.MarkPaidFunc(ctx, db, roundID, paidAt, rolloverAvailable)
	}
	return nil
}

func (f *FakeDrawRepository) MarkArchived(ctx context.Context, db bun.IDB, roundID types.RoundID, archivedAt time.Time) error {
	f.record("MarkArchived")
	if f.MarkArchivedFunc != nil {
		return f.MarkArchivedFunc(ctx, db, roundID, archivedAt)
	}
	return nil
}

func (f *FakeDrawRepository) MarkCancelled(ctx context.Context, db bun.IDB, roundID types.RoundID, cancelledAt time.Time) error {
	f.record("MarkCancelled")
	if f.MarkCancelledFunc != nil {
		return f.MarkCancelledFunc(ctx, db, roundID, cancelledAt)
	}
	return nil
}

func (f *FakeDrawRepository) InsertEntry(ctx context.Context, db bun.IDB, entry *drawdb.Entry) error {
	f.record("InsertEntry")
	if f.InsertEntryFunc != nil {
		return f.InsertEntryFunc(ctx, db, entry)
	}
	return nil
}

func (f *FakeDrawRepository) ListEntries(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]drawdb.Entry, error) {
	f.record("ListEntries")
	if f.ListEntriesFunc != nil {
		return f.ListEntriesFunc(ctx, db, roundID)
	}
	return nil, nil
}

func (f *FakeDrawRepository) CountEntriesForUser(ctx context.Context, db bun.IDB, roundID types.RoundID, userID types.UserID) (int, error) {
	f.record("CountEntriesForUser")
	if f.CountEntriesForUserFunc != nil {
		return f.CountEntriesForUserFunc(ctx, db, roundID, userID)
	}
	return 0, nil
}

func (f *FakeDrawRepository) IncrementPool(ctx context.Context, db bun.IDB, roundID types.RoundID, amount types.TokenAmount) (types.TokenAmount, error) {
	f.record("IncrementPool")
	if f.IncrementPoolFunc != nil {
		return f.IncrementPoolFunc(ctx, db, roundID, amount)
	}
	return amount, nil
}

func (f *FakeDrawRepository) InsertWinners(ctx context.Context, db bun.IDB, winners []drawdb.Winner) error {
	f.record("InsertWinners")
	if f.InsertWinnersFunc != nil {
		return f.InsertWinnersFunc(ctx, db, winners)
	}
	return nil
}

func (f *FakeDrawRepository) ListWinners(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]drawdb.Winner, error) {
	f.record("ListWinners")
	if f.ListWinnersFunc != nil {
		return f.ListWinnersFunc(ctx, db, roundID)
	}
	return nil, nil
}

func (f *FakeDrawRepository) MarkWinnerPaid(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error {
	f.record("MarkWinnerPaid")
	if f.MarkWinnerPaidFunc != nil {
		return f.MarkWinnerPaidFunc(ctx, db, winnerID, paidAt)
	}
	return nil
}

func (f *FakeDrawRepository) ClaimRollover(ctx context.Context, db bun.IDB) (types.TokenAmount, error) {
	f.record("ClaimRollover")
	if f.ClaimRolloverFunc != nil {
		return f.ClaimRolloverFunc(ctx, db)
	}
	return 0, nil
}

var _ drawdb.Repository = (*FakeDrawRepository)(nil)

// ------------------------
// Fake Wallet Service
// ------------------------

// FakeWalletService provides a programmable stub for the wallet
// service used by the draw operations.
type FakeWalletService struct {
	trace []string

	DebitFunc     func(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error)
	CreditFunc    func(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, bool, error)
	GetWalletFunc func(ctx context.Context, userID types.UserID) (*walletdb.Wallet, error)
}

// NewFakeWalletService initializes a new FakeWalletService.
func NewFakeWalletService() *FakeWalletService {
	return &FakeWalletService{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeWalletService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeWalletService) Debit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error) {
	f.trace = append(f.trace, "Debit")
	if f.DebitFunc != nil {
		return f.DebitFunc(ctx, db, userID, amount, reason, idempotencyKey)
	}
	return 0, nil
}

func (f *FakeWalletService) Credit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, bool, error) {
	f.trace = append(f.trace, "Credit")
	if f.CreditFunc != nil {
		return f.CreditFunc(ctx, db, userID, amount, reason, idempotencyKey)
	}
	return amount, true, nil
}

func (f *FakeWalletService) GetWallet(ctx context.Context, userID types.UserID) (*walletdb.Wallet, error) {
	f.trace = append(f.trace, "GetWallet")
	if f.GetWalletFunc != nil {
		return f.GetWalletFunc(ctx, userID)
	}
	return nil, walletdb.ErrNotFound
}

var _ walletservice.Service = (*FakeWalletService)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type scheduledJob struct {
	Kind    string
	RoundID types.RoundID
	At      time.Time
}

// FakeScheduler records scheduled lifecycle steps.
type FakeScheduler struct {
	Jobs []scheduledJob

	FailWith error
}

func (f *FakeScheduler) book(kind string, roundID types.RoundID, at time.Time) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Jobs = append(f.Jobs, scheduledJob{Kind: kind, RoundID: roundID, At: at})
	return nil
}

func (f *FakeScheduler) ScheduleLock(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return f.book("lock", roundID, at)
}

func (f *FakeScheduler) ScheduleDraw(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return f.book("draw", roundID, at)
}

func (f *FakeScheduler) SchedulePayout(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return f.book("payout", roundID, at)
}

func (f *FakeScheduler) ScheduleArchive(ctx context.Context, roundID types.RoundID, at time.Time) error {
	return f.book("archive", roundID, at)
}

var _ Scheduler = (*FakeScheduler)(nil)

// ------------------------
// Fake Event Bus
// ------------------------

type publishedMessage struct {
	Topic   string
	Message *message.Message
}

// FakeEventBus records published messages.
type FakeEventBus struct {
	Published []publishedMessage
}

func (f *FakeEventBus) Publish(topic string, messages ...*message.Message) error {
	for _, m := range messages {
		f.Published = append(f.Published, publishedMessage{Topic: topic, Message: m})
	}
	return nil
}

func (f *FakeEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return nil, nil
}

func (f *FakeEventBus) Close() error { return nil }

// Topics returns the published topics in order.
func (f *FakeEventBus) Topics() []string {
	out := make([]string, len(f.Published))
	for i, p := range f.Published {
		out[i] = p.Topic
	}
	return out
}
