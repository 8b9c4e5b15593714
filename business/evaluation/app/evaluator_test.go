package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/business/evaluation/domain"
	"github.com/fd1az/flash-arb/internal/config"
)

// stubSchedule is a fixed fee table keyed venue -> bps.
type stubSchedule map[string]string

func (s stubSchedule) Snapshot() FeeSnapshot { return s }

func (s stubSchedule) FeeRate(venueID, token string) (domain.FeeRate, bool) {
	bps, ok := s[venueID]
	if !ok {
		return domain.FeeRate{}, false
	}
	return domain.FeeRate{
		VenueID: venueID,
		Token:   token,
		Bps:     decimal.RequireFromString(bps),
	}, true
}

func newTestEvaluator(t *testing.T, schedule FeeSchedule) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(schedule, config.EvaluationConfig{
		MinProfitUSD:     10,
		MinProfitPercent: 1,
		MaxProfitPercent: 8,
		LoanPremiumBps:   9,
	})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func TestEvaluator_Evaluate(t *testing.T) {
	// Both venues charge 0.3% (30 bps), flash loan premium 0.09% (9 bps).
	schedule := stubSchedule{"uniswap": "30", "sushiswap": "30"}

	tests := []struct {
		name        string
		buyPrice    string
		sellPrice   string
		notionalUSD string
		wantAccept  bool
		wantNetUSD  string // checked only when accepted
		wantNetPct  string
	}{
		{
			// $100 -> $102 spread on $10,000: gross $200, fees
			// $9 + $30 + $30.6, net $130.40 = 1.304%.
			name:        "profitable_round_trip",
			buyPrice:    "100",
			sellPrice:   "102",
			notionalUSD: "10000",
			wantAccept:  true,
			wantNetUSD:  "130.4",
			wantNetPct:  "1.304",
		},
		{
			// 15% spread clears every absolute threshold but sits far
			// above the band ceiling, so it is rejected as anomalous.
			name:        "anomalous_spread_rejected",
			buyPrice:    "100",
			sellPrice:   "115",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			name:        "wrong_direction_rejected",
			buyPrice:    "102",
			sellPrice:   "100",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			name:        "equal_prices_rejected",
			buyPrice:    "100",
			sellPrice:   "100",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			// Net percent just under 1%: 1.5% gross spread leaves
			// ~0.8% after fees.
			name:        "below_band_floor_rejected",
			buyPrice:    "100",
			sellPrice:   "101.5",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			// Same spread percent but tiny notional: net USD below the
			// $10 absolute floor even though the percent clears the band.
			name:        "below_min_profit_usd_rejected",
			buyPrice:    "100",
			sellPrice:   "102",
			notionalUSD: "500",
			wantAccept:  false,
		},
		{
			name:        "zero_buy_price_rejected",
			buyPrice:    "0",
			sellPrice:   "102",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			name:        "negative_sell_price_rejected",
			buyPrice:    "100",
			sellPrice:   "-1",
			notionalUSD: "10000",
			wantAccept:  false,
		},
		{
			name:        "zero_notional_rejected",
			buyPrice:    "100",
			sellPrice:   "102",
			notionalUSD: "0",
			wantAccept:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(t, schedule)

			opp := e.Evaluate(context.Background(), "WETH",
				"uniswap", decimal.RequireFromString(tt.buyPrice),
				"sushiswap", decimal.RequireFromString(tt.sellPrice),
				decimal.RequireFromString(tt.notionalUSD),
			)

			if !tt.wantAccept {
				if opp != nil {
					t.Fatalf("expected rejection, got opportunity with net %s", opp.NetProfitUSD)
				}
				return
			}

			if opp == nil {
				t.Fatal("expected opportunity, got nil")
			}

			wantNet := decimal.RequireFromString(tt.wantNetUSD)
			if !opp.NetProfitUSD.Equal(wantNet) {
				t.Errorf("NetProfitUSD = %s, want %s", opp.NetProfitUSD, wantNet)
			}

			wantPct := decimal.RequireFromString(tt.wantNetPct)
			if !opp.NetProfitPercent.Equal(wantPct) {
				t.Errorf("NetProfitPercent = %s, want %s", opp.NetProfitPercent, wantPct)
			}

			if !opp.TradeSizeToken.Equal(opp.NotionalUSD.Div(opp.BuyPrice)) {
				t.Errorf("TradeSizeToken = %s, want notional/buyPrice", opp.TradeSizeToken)
			}
		})
	}
}

func TestEvaluator_MissingFeeSchedule(t *testing.T) {
	e := newTestEvaluator(t, stubSchedule{"uniswap": "30"})

	opp := e.Evaluate(context.Background(), "WETH",
		"uniswap", decimal.RequireFromString("100"),
		"unknown-venue", decimal.RequireFromString("102"),
		decimal.RequireFromString("10000"),
	)
	if opp != nil {
		t.Fatal("expected rejection when sell venue has no fee schedule entry")
	}

	opp = e.Evaluate(context.Background(), "WETH",
		"unknown-venue", decimal.RequireFromString("100"),
		"uniswap", decimal.RequireFromString("102"),
		decimal.RequireFromString("10000"),
	)
	if opp != nil {
		t.Fatal("expected rejection when buy venue has no fee schedule entry")
	}
}

func TestEvaluator_FeeMonotonicity(t *testing.T) {
	// Raising any single fee rate with prices held fixed must never
	// increase net profit.
	buy := decimal.RequireFromString("100")
	sell := decimal.RequireFromString("102")
	notional := decimal.RequireFromString("10000")

	baseline := newTestEvaluator(t, stubSchedule{"a": "30", "b": "30"})
	base := baseline.Evaluate(context.Background(), "WETH", "a", buy, "b", sell, notional)
	if base == nil {
		t.Fatal("baseline must be accepted")
	}

	bumped := []stubSchedule{
		{"a": "60", "b": "30"},
		{"a": "30", "b": "60"},
	}
	for _, schedule := range bumped {
		e := newTestEvaluator(t, schedule)
		opp := e.Evaluate(context.Background(), "WETH", "a", buy, "b", sell, notional)
		if opp == nil {
			continue // rejection is a valid monotone outcome
		}
		if opp.NetProfitUSD.GreaterThan(base.NetProfitUSD) {
			t.Errorf("net profit rose from %s to %s after fee increase",
				base.NetProfitUSD, opp.NetProfitUSD)
		}
	}
}

func TestEvaluator_FeeBreakdown(t *testing.T) {
	e := newTestEvaluator(t, stubSchedule{"a": "30", "b": "30"})

	opp := e.Evaluate(context.Background(), "WETH",
		"a", decimal.RequireFromString("100"),
		"b", decimal.RequireFromString("102"),
		decimal.RequireFromString("10000"),
	)
	if opp == nil {
		t.Fatal("expected opportunity")
	}

	if want := decimal.RequireFromString("9"); !opp.Fees.LoanPremiumUSD.Equal(want) {
		t.Errorf("LoanPremiumUSD = %s, want %s", opp.Fees.LoanPremiumUSD, want)
	}
	if want := decimal.RequireFromString("30"); !opp.Fees.BuyVenueFeeUSD.Equal(want) {
		t.Errorf("BuyVenueFeeUSD = %s, want %s", opp.Fees.BuyVenueFeeUSD, want)
	}
	// Sell side fee applies to notional plus gross profit ($10,200).
	if want := decimal.RequireFromString("30.6"); !opp.Fees.SellVenueFeeUSD.Equal(want) {
		t.Errorf("SellVenueFeeUSD = %s, want %s", opp.Fees.SellVenueFeeUSD, want)
	}
	if want := decimal.RequireFromString("69.6"); !opp.Fees.TotalUSD().Equal(want) {
		t.Errorf("TotalUSD = %s, want %s", opp.Fees.TotalUSD(), want)
	}
}
