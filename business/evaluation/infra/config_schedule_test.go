package infra

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/internal/config"
)

func testVenues() []config.VenueConfig {
	return []config.VenueConfig{
		{
			ID:     "sushiswap",
			Kind:   "constant_product",
			FeeBps: 30,
		},
		{
			ID:       "uniswap",
			Kind:     "concentrated",
			FeeTiers: []int64{3000, 500, 10000},
			Pools: []config.PoolConfig{
				{TokenA: "WETH", TokenB: "USDC", FeeTier: 500},
				{TokenA: "WBTC", TokenB: "USDC", FeeTier: 3000},
			},
		},
	}
}

func TestConfigSchedule_FeeRate(t *testing.T) {
	schedule := NewConfigSchedule(testVenues())
	snap := schedule.Snapshot()

	tests := []struct {
		name    string
		venue   string
		token   string
		wantBps string
		wantOK  bool
	}{
		{"flat_fee_venue", "sushiswap", "WETH", "30", true},
		{"flat_fee_any_token", "sushiswap", "DAI", "30", true},
		{"tiered_pool_match", "uniswap", "WETH", "5", true},
		{"tiered_pool_other_pair", "uniswap", "WBTC", "30", true},
		{"tiered_default_tier", "uniswap", "DAI", "30", true},
		{"unknown_venue", "curve", "WETH", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := snap.FeeRate(tt.venue, tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !rate.Bps.Equal(decimal.RequireFromString(tt.wantBps)) {
				t.Errorf("bps = %s, want %s", rate.Bps, tt.wantBps)
			}
		})
	}
}

func TestConfigSchedule_SnapshotIsolation(t *testing.T) {
	schedule := NewConfigSchedule(testVenues())
	before := schedule.Snapshot()

	schedule.Reload([]config.VenueConfig{
		{ID: "sushiswap", Kind: "constant_product", FeeBps: 100},
	})

	// The old snapshot still answers with the fee table it was built from.
	rate, ok := before.FeeRate("sushiswap", "WETH")
	if !ok {
		t.Fatal("old snapshot lost its venue")
	}
	if !rate.Bps.Equal(decimal.NewFromInt(30)) {
		t.Errorf("old snapshot bps = %s, want 30", rate.Bps)
	}

	rate, ok = schedule.Snapshot().FeeRate("sushiswap", "WETH")
	if !ok {
		t.Fatal("new snapshot missing venue")
	}
	if !rate.Bps.Equal(decimal.NewFromInt(100)) {
		t.Errorf("new snapshot bps = %s, want 100", rate.Bps)
	}

	if _, ok := schedule.Snapshot().FeeRate("uniswap", "WETH"); ok {
		t.Error("new snapshot should not contain removed venue")
	}
}
