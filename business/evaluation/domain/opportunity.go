// Package domain contains the core domain types for the evaluation context.
package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is a fully evaluated candidate round trip: buy the token on the
// cheaper venue, sell on the dearer one. All intermediate values are retained
// so rejected candidates can be compared against accepted ones offline.
type Opportunity struct {
	Token     string
	BuyVenue  string
	SellVenue string

	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	NotionalUSD decimal.Decimal

	TradeSizeToken     decimal.Decimal
	GrossProfitUSD     decimal.Decimal
	GrossProfitPercent decimal.Decimal
	Fees               FeeBreakdown
	NetProfitUSD       decimal.Decimal
	NetProfitPercent   decimal.Decimal

	Timestamp time.Time
}

// Rank sorts opportunities by net profit descending. Ties keep discovery
// order.
func Rank(opps []*Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetProfitUSD.GreaterThan(opps[j].NetProfitUSD)
	})
}
