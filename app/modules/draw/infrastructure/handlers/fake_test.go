package drawhandlers

import (
	"context"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// ------------------------
// Fake Draw Service
// ------------------------

// FakeDrawService provides a programmable stub for the
// drawservice.Service interface.
type FakeDrawService struct {
	trace []string

	OpenRoundFunc       func(ctx context.Context) (results.OperationResult[drawservice.OpenRoundData, drawservice.Failure], error)
	EnterRoundFunc      func(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error)
	LockRoundFunc       func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.LockRoundData, drawservice.Failure], error)
	DrawRoundFunc       func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.DrawRoundData, drawservice.Failure], error)
	PayoutRoundFunc     func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.PayoutRoundData, drawservice.Failure], error)
	ArchiveRoundFunc    func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.ArchiveRoundData, drawservice.Failure], error)
	CancelRoundFunc     func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.CancelRoundData, drawservice.Failure], error)
	GetRoundFunc        func(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error)
	GetRoundWinnersFunc func(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error)
}

// NewFakeDrawService initializes a new FakeDrawService.
func NewFakeDrawService() *FakeDrawService {
	return &FakeDrawService{trace: []string{}}
}

func (f *FakeDrawService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeDrawService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeDrawService) OpenRound(ctx context.Context) (results.OperationResult[drawservice.OpenRoundData, drawservice.Failure], error) {
	f.record("OpenRound")
	if f.OpenRoundFunc != nil {
		return f.OpenRoundFunc(ctx)
	}
	return results.OperationResult[drawservice.OpenRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) EnterRound(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error) {
	f.record("EnterRound")
	if f.EnterRoundFunc != nil {
		return f.EnterRoundFunc(ctx, roundID, userID)
	}
	return results.OperationResult[drawservice.EnterRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) LockRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.LockRoundData, drawservice.Failure], error) {
	f.record("LockRound")
	if f.LockRoundFunc != nil {
		return f.LockRoundFunc(ctx, roundID)
	}
	return results.OperationResult[drawservice.LockRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) DrawRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.DrawRoundData, drawservice.Failure], error) {
	f.record("DrawRound")
	if f.DrawRoundFunc != nil {
		return f.DrawRoundFunc(ctx, roundID)
	}
	return results.OperationResult[drawservice.DrawRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) PayoutRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.PayoutRoundData, drawservice.Failure], error) {
	f.record("PayoutRound")
	if f.PayoutRoundFunc != nil {
		return f.PayoutRoundFunc(ctx, roundID)
	}
	return results.OperationResult[drawservice.PayoutRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) ArchiveRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.ArchiveRoundData, drawservice.Failure], error) {
	f.record("ArchiveRound")
	if f.ArchiveRoundFunc != nil {
		return f.ArchiveRoundFunc(ctx, roundID)
	}
	return results.OperationResult[drawservice.ArchiveRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) CancelRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.CancelRoundData, drawservice.Failure], error) {
	f.record("CancelRound")
	if f.CancelRoundFunc != nil {
		return f.CancelRoundFunc(ctx, roundID)
	}
	return results.OperationResult[drawservice.CancelRoundData, drawservice.Failure]{}, nil
}

func (f *FakeDrawService) GetRound(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error) {
	f.record("GetRound")
	if f.GetRoundFunc != nil {
		return f.GetRoundFunc(ctx, roundID)
	}
	return nil, drawdb.ErrNotFound
}

func (f *FakeDrawService) GetRoundWinners(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error) {
	f.record("GetRoundWinners")
	if f.GetRoundWinnersFunc != nil {
		return f.GetRoundWinnersFunc(ctx, roundID)
	}
	return nil, nil
}

var _ drawservice.Service = (*FakeDrawService)(nil)
