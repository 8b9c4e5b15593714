// Package infra provides the config-backed fee schedule for the evaluation context.
package infra

import (
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/business/evaluation/app"
	"github.com/fd1az/flash-arb/business/evaluation/domain"
	"github.com/fd1az/flash-arb/internal/config"
)

// Ensure ConfigSchedule implements FeeSchedule.
var _ app.FeeSchedule = (*ConfigSchedule)(nil)

// venueFees is the resolved fee table for one venue.
type venueFees struct {
	kind       string
	flatBps    decimal.Decimal
	tierByToken map[string]decimal.Decimal
	defaultBps decimal.Decimal
}

// snapshot is one immutable fee schedule version. Never mutated after build.
type snapshot struct {
	venues map[string]venueFees
}

// FeeRate resolves the fee a venue charges for trading a token.
func (s *snapshot) FeeRate(venueID, token string) (domain.FeeRate, bool) {
	v, ok := s.venues[venueID]
	if !ok {
		return domain.FeeRate{}, false
	}

	rate := domain.FeeRate{VenueID: venueID, Token: token}
	switch v.kind {
	case "constant_product":
		rate.Bps = v.flatBps
	case "concentrated":
		bps, ok := v.tierByToken[token]
		if !ok {
			bps = v.defaultBps
		}
		if bps.Sign() <= 0 {
			return domain.FeeRate{}, false
		}
		rate.Bps = bps
	default:
		return domain.FeeRate{}, false
	}
	return rate, true
}

// ConfigSchedule builds immutable fee schedule snapshots from venue
// configuration. Reload swaps the snapshot pointer atomically, so an
// in-flight evaluation keeps reading the version it started with.
type ConfigSchedule struct {
	current atomic.Pointer[snapshot]
}

// NewConfigSchedule builds the initial schedule from configuration.
func NewConfigSchedule(venues []config.VenueConfig) *ConfigSchedule {
	s := &ConfigSchedule{}
	s.current.Store(build(venues))
	return s
}

// Snapshot returns the current schedule version.
func (s *ConfigSchedule) Snapshot() app.FeeSnapshot {
	return s.current.Load()
}

// Reload rebuilds the schedule from new venue configuration.
func (s *ConfigSchedule) Reload(venues []config.VenueConfig) {
	s.current.Store(build(venues))
}

func build(venues []config.VenueConfig) *snapshot {
	snap := &snapshot{venues: make(map[string]venueFees, len(venues))}

	for _, vc := range venues {
		fees := venueFees{
			kind:        vc.Kind,
			flatBps:     decimal.NewFromInt(vc.FeeBps),
			tierByToken: make(map[string]decimal.Decimal),
		}

		// Fee tiers use the Uniswap V3 convention (hundredths of a bip):
		// tier 3000 is 0.30%, i.e. 30 bps.
		if len(vc.FeeTiers) > 0 {
			fees.defaultBps = tierToBps(vc.FeeTiers[0])
		}
		for _, pool := range vc.Pools {
			bps := tierToBps(pool.FeeTier)
			fees.tierByToken[pool.TokenA] = bps
			fees.tierByToken[pool.TokenB] = bps
		}

		snap.venues[vc.ID] = fees
	}

	return snap
}

func tierToBps(tier int64) decimal.Decimal {
	return decimal.NewFromInt(tier).Div(decimal.NewFromInt(100))
}
