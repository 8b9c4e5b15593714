// Package domain contains the core domain types for the feed context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/internal/apperror"
)

// Candidate is one scanner observation: the same token priced on two venues,
// funded in a stable token. Prices are USD per token. Direction is not
// implied; the feed evaluates both.
type Candidate struct {
	Token        string          `json:"token"`
	FundingToken string          `json:"fundingToken"`
	VenueX       string          `json:"venueX"`
	VenueY       string          `json:"venueY"`
	PriceX       decimal.Decimal `json:"priceX"`
	PriceY       decimal.Decimal `json:"priceY"`
	NotionalUSD  decimal.Decimal `json:"notionalUsd"`
	FeeTierX     int64           `json:"feeTierX"`
	FeeTierY     int64           `json:"feeTierY"`
	ObservedAt   time.Time       `json:"observedAt"`
}

// Validate checks the candidate's intrinsic invariants. A zero notional is
// allowed; the feed substitutes its configured default.
func (c Candidate) Validate() error {
	if c.Token == "" || c.FundingToken == "" {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("candidate token and funding token are required"))
	}
	if c.Token == c.FundingToken {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("candidate token equals funding token"))
	}
	if c.VenueX == "" || c.VenueY == "" || c.VenueX == c.VenueY {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("candidate needs two distinct venues"))
	}
	if c.PriceX.Sign() <= 0 || c.PriceY.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("candidate prices must be positive"))
	}
	if c.NotionalUSD.Sign() < 0 {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("candidate notional cannot be negative"))
	}
	return nil
}

// FeeTierFor returns the fee tier the candidate carries for a venue.
func (c Candidate) FeeTierFor(venue string) int64 {
	switch venue {
	case c.VenueX:
		return c.FeeTierX
	case c.VenueY:
		return c.FeeTierY
	default:
		return 0
	}
}
