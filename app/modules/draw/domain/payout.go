package drawdomain

import (
	"fmt"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// PayoutSplit is the configured division of a round's pool. The
// percentages are explicit inputs; the engine never assumes a split.
type PayoutSplit struct {
	// TierPercents are the prize percentages per tier, highest first.
	TierPercents []int
	// CommunityPercent is routed to community projects.
	CommunityPercent int
	// PlatformPercent is retained by the platform.
	PlatformPercent int
}

// Validate requires the percentages to cover the pool exactly.
func (p PayoutSplit) Validate() error {
	total := p.CommunityPercent + p.PlatformPercent
	for _, t := range p.TierPercents {
		if t <= 0 {
			return fmt.Errorf("tier percent must be positive, got %d", t)
		}
		total += t
	}
	if total != 100 {
		return fmt.Errorf("payout split must sum to 100, got %d", total)
	}
	return nil
}

// Tiers is the configured number of prize tiers.
func (p PayoutSplit) Tiers() int { return len(p.TierPercents) }

// TierAmount is a prize tier's token amount for a given pool, floored
// to whole tokens.
func (p PayoutSplit) TierAmount(pool types.TokenAmount, tier types.Tier) types.TokenAmount {
	if tier < 1 || int(tier) > len(p.TierPercents) {
		return 0
	}
	return pool * types.TokenAmount(p.TierPercents[tier-1]) / 100
}

// CommunityAmount is the community-projects share for a given pool.
func (p PayoutSplit) CommunityAmount(pool types.TokenAmount) types.TokenAmount {
	return pool * types.TokenAmount(p.CommunityPercent) / 100
}

// PlatformAmount is whatever the tier and community shares leave
// behind, so integer flooring never strands tokens.
func (p PayoutSplit) PlatformAmount(pool types.TokenAmount, tiersAwarded int) types.TokenAmount {
	remaining := pool - p.CommunityAmount(pool)
	for tier := 1; tier <= tiersAwarded; tier++ {
		remaining -= p.TierAmount(pool, types.Tier(tier))
	}
	return remaining
}
