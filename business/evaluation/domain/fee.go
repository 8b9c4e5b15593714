// Package domain contains the core domain types for the evaluation context.
package domain

import "github.com/shopspring/decimal"

var bpsDivisor = decimal.NewFromInt(10000)

// FeeRate is the fee a venue charges for trading a token, in basis points.
// Concentrated-liquidity venues resolve this from the pool's fee tier;
// constant-product venues charge a flat rate.
type FeeRate struct {
	VenueID string
	Token   string
	Bps     decimal.Decimal
}

// FeeUSD returns the fee charged on the given notional.
func (r FeeRate) FeeUSD(notionalUSD decimal.Decimal) decimal.Decimal {
	return notionalUSD.Mul(r.Bps).Div(bpsDivisor)
}

// FeeBreakdown itemizes the costs of one candidate round trip.
type FeeBreakdown struct {
	LoanPremiumUSD  decimal.Decimal
	BuyVenueFeeUSD  decimal.Decimal
	SellVenueFeeUSD decimal.Decimal
}

// TotalUSD returns the sum of all fee components.
func (f FeeBreakdown) TotalUSD() decimal.Decimal {
	return f.LoanPremiumUSD.Add(f.BuyVenueFeeUSD).Add(f.SellVenueFeeUSD)
}
