package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func opp(id string, netProfit string) *Opportunity {
	return &Opportunity{
		Token:        id,
		NetProfitUSD: decimal.RequireFromString(netProfit),
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		in   []*Opportunity
		want []string // expected token order
	}{
		{
			name: "descending_by_net_profit",
			in:   []*Opportunity{opp("a", "10"), opp("b", "130.4"), opp("c", "55")},
			want: []string{"b", "c", "a"},
		},
		{
			name: "ties_keep_discovery_order",
			in:   []*Opportunity{opp("first", "50"), opp("second", "50"), opp("third", "100")},
			want: []string{"third", "first", "second"},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "single",
			in:   []*Opportunity{opp("only", "1")},
			want: []string{"only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Rank(tt.in)
			for i, want := range tt.want {
				if tt.in[i].Token != want {
					t.Errorf("position %d = %s, want %s", i, tt.in[i].Token, want)
				}
			}
		})
	}
}

func TestFeeRate_FeeUSD(t *testing.T) {
	tests := []struct {
		name     string
		bps      string
		notional string
		want     string
	}{
		{"thirty_bps", "30", "10000", "30"},
		{"flash_loan_premium", "9", "10000", "9"},
		{"zero_rate", "0", "10000", "0"},
		{"fractional_bps", "5", "10200", "5.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FeeRate{Bps: decimal.RequireFromString(tt.bps)}
			got := r.FeeUSD(decimal.RequireFromString(tt.notional))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FeeUSD = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFeeBreakdown_TotalUSD(t *testing.T) {
	f := FeeBreakdown{
		LoanPremiumUSD:  decimal.RequireFromString("9"),
		BuyVenueFeeUSD:  decimal.RequireFromString("30"),
		SellVenueFeeUSD: decimal.RequireFromString("30.6"),
	}
	if want := decimal.RequireFromString("69.6"); !f.TotalUSD().Equal(want) {
		t.Errorf("TotalUSD = %s, want %s", f.TotalUSD(), want)
	}
}
