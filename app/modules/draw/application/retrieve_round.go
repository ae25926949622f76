package drawservice

import (
	"context"

	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// GetRound returns round state for the read API. The commitment is
// always visible; the revealed seed column stays empty until the draw.
func (s *DrawService) GetRound(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error) {
	ctx, span := s.tracer.Start(ctx, "GetRound")
	defer span.End()

	round, err := s.repo.GetRound(ctx, s.db, roundID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return round, nil
}

// GetRoundWinners returns a round's winners ordered by tier.
func (s *DrawService) GetRoundWinners(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error) {
	ctx, span := s.tracer.Start(ctx, "GetRoundWinners")
	defer span.End()

	winners, err := s.repo.ListWinners(ctx, s.db, roundID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return winners, nil
}
