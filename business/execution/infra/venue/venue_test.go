package venue

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func daiAmount(t *testing.T, s string) asset.Amount {
	t.Helper()
	a, err := asset.ParseString(asset.DAI, s)
	if err != nil {
		t.Fatalf("ParseString(%s): %v", s, err)
	}
	return a
}

func TestGetAmountOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		reserveIn  int64
		reserveOut int64
		feeUnits   int64
		feeDivisor int64
		want       int64
	}{
		{"thirty_bps", 1000, 1_000_000, 1_000_000, 30, 10000, 996},
		{"zero_fee", 1000, 1_000_000, 1_000_000, 0, 10000, 999},
		{"tier_3000", 1000, 1_000_000, 1_000_000, 3000, 1_000_000, 996},
		{"zero_input", 0, 1_000_000, 1_000_000, 30, 10000, 0},
		{"empty_reserve_in", 1000, 0, 1_000_000, 30, 10000, 0},
		{"empty_reserve_out", 1000, 1_000_000, 0, 30, 10000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getAmountOut(
				big.NewInt(tt.amountIn),
				big.NewInt(tt.reserveIn),
				big.NewInt(tt.reserveOut),
				tt.feeUnits, tt.feeDivisor,
			)
			if got.Int64() != tt.want {
				t.Errorf("getAmountOut = %d, want %d", got.Int64(), tt.want)
			}
		})
	}
}

func newConstantProductVenue(t *testing.T) *ConstantProduct {
	t.Helper()
	v, err := NewConstantProduct(config.VenueConfig{
		ID:     "amm",
		Kind:   "constant_product",
		FeeBps: 30,
		Pools: []config.PoolConfig{
			{TokenA: "DAI", TokenB: "WETH", ReserveA: 1_000_000, ReserveB: 500},
			{TokenA: "WETH", TokenB: "USDC", ReserveA: 500, ReserveB: 1_000_000},
		},
	}, asset.DefaultRegistry(), testLogger())
	if err != nil {
		t.Fatalf("NewConstantProduct: %v", err)
	}
	return v
}

func TestConstantProduct_QuoteMatchesSwap(t *testing.T) {
	v := newConstantProductVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "10000")

	quoted, err := v.Quote(ctx, "DAI", "WETH", 0, in)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !quoted.IsPositive() {
		t.Fatalf("quote = %s, want positive", quoted)
	}
	if quoted.Asset().Symbol() != "WETH" {
		t.Fatalf("quote asset = %s, want WETH", quoted.Asset().Symbol())
	}

	res, err := v.Swap(ctx, "DAI", "WETH", 0, in, quoted, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if !res.AmountOut.Equals(quoted) {
		t.Errorf("swap output %s differs from quote %s", res.AmountOut, quoted)
	}
}

func TestConstantProduct_SwapMovesPriceAndRevertRestores(t *testing.T) {
	v := newConstantProductVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "10000")

	before, _ := v.Quote(ctx, "DAI", "WETH", 0, in)

	res, err := v.Swap(ctx, "DAI", "WETH", 0, in, asset.Zero(asset.WETH), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	// Reserves moved: the same trade now yields less.
	after, _ := v.Quote(ctx, "DAI", "WETH", 0, in)
	if lt, _ := after.LessThan(before); !lt {
		t.Errorf("post-swap quote %s not below pre-swap quote %s", after, before)
	}

	res.Revert()
	restored, _ := v.Quote(ctx, "DAI", "WETH", 0, in)
	if !restored.Equals(before) {
		t.Errorf("quote after revert = %s, want %s", restored, before)
	}
}

func TestConstantProduct_SingleHopRouting(t *testing.T) {
	v := newConstantProductVenue(t)
	ctx := context.Background()

	// No direct DAI/USDC pool: the route goes through WETH.
	out, err := v.Quote(ctx, "DAI", "USDC", 0, daiAmount(t, "1000"))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !out.IsPositive() {
		t.Fatalf("routed quote = %s, want positive", out)
	}
	if out.Asset().Symbol() != "USDC" {
		t.Errorf("routed quote asset = %s, want USDC", out.Asset().Symbol())
	}
}

func TestConstantProduct_NoPath(t *testing.T) {
	v := newConstantProductVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "1000")

	// WBTC has no pool on this venue.
	out, err := v.Quote(ctx, "DAI", "WBTC", 0, in)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !out.IsZero() {
		t.Errorf("quote = %s, want zero for unreachable pair", out)
	}

	_, err = v.Swap(ctx, "DAI", "WBTC", 0, in, asset.Zero(asset.DAI), time.Now().Add(time.Minute))
	if !apperror.IsCode(err, apperror.CodePoolNotFound) {
		t.Errorf("Swap: got %v, want PoolNotFound", err)
	}
}

func TestConstantProduct_SlippageFloor(t *testing.T) {
	v := newConstantProductVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "10000")

	quoted, _ := v.Quote(ctx, "DAI", "WETH", 0, in)
	tooHigh := quoted.MustAdd(quoted)

	_, err := v.Swap(ctx, "DAI", "WETH", 0, in, tooHigh, time.Now().Add(time.Minute))
	if !apperror.IsCode(err, apperror.CodeInsufficientOutput) {
		t.Errorf("got %v, want InsufficientOutput", err)
	}

	// The refused swap must not move reserves.
	if after, _ := v.Quote(ctx, "DAI", "WETH", 0, in); !after.Equals(quoted) {
		t.Errorf("quote after refused swap = %s, want %s", after, quoted)
	}
}

func TestConstantProduct_DeadlineExpired(t *testing.T) {
	v := newConstantProductVenue(t)

	_, err := v.Swap(context.Background(), "DAI", "WETH", 0,
		daiAmount(t, "1000"), asset.Zero(asset.WETH), time.Now().Add(-time.Second))
	if !apperror.IsCode(err, apperror.CodeDeadlineExpired) {
		t.Errorf("got %v, want DeadlineExpired", err)
	}
}

func newConcentratedVenue(t *testing.T) *Concentrated {
	t.Helper()
	v, err := NewConcentrated(config.VenueConfig{
		ID:       "clmm",
		Kind:     "concentrated",
		FeeTiers: []int64{FeeTier030, FeeTier005},
		Pools: []config.PoolConfig{
			{TokenA: "DAI", TokenB: "WETH", ReserveA: 1_000_000, ReserveB: 500, FeeTier: FeeTier030},
		},
	}, asset.DefaultRegistry(), testLogger())
	if err != nil {
		t.Fatalf("NewConcentrated: %v", err)
	}
	return v
}

func TestConcentrated_TierLookup(t *testing.T) {
	v := newConcentratedVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "10000")

	atTier, err := v.Quote(ctx, "DAI", "WETH", FeeTier030, in)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !atTier.IsPositive() {
		t.Fatalf("quote = %s, want positive", atTier)
	}

	// Tier zero resolves to the default tier.
	defaulted, _ := v.Quote(ctx, "DAI", "WETH", 0, in)
	if !defaulted.Equals(atTier) {
		t.Errorf("default-tier quote = %s, want %s", defaulted, atTier)
	}

	// A tier with no pool falls back to the default tier pool.
	fallback, _ := v.Quote(ctx, "DAI", "WETH", FeeTier100, in)
	if !fallback.Equals(atTier) {
		t.Errorf("fallback quote = %s, want %s", fallback, atTier)
	}
}

func TestConcentrated_MissingPool(t *testing.T) {
	v := newConcentratedVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "1000")

	out, err := v.Quote(ctx, "DAI", "USDC", FeeTier030, in)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !out.IsZero() {
		t.Errorf("quote = %s, want zero for unseeded pair", out)
	}

	_, err = v.Swap(ctx, "DAI", "USDC", FeeTier030, in, asset.Zero(asset.DAI), time.Now().Add(time.Minute))
	if !apperror.IsCode(err, apperror.CodePoolNotFound) {
		t.Errorf("Swap: got %v, want PoolNotFound", err)
	}
}

func TestConcentrated_SwapAndRevert(t *testing.T) {
	v := newConcentratedVenue(t)
	ctx := context.Background()
	in := daiAmount(t, "10000")

	before, _ := v.Quote(ctx, "DAI", "WETH", FeeTier030, in)

	res, err := v.Swap(ctx, "DAI", "WETH", FeeTier030, in, before, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if !res.AmountOut.Equals(before) {
		t.Errorf("swap output %s differs from quote %s", res.AmountOut, before)
	}

	res.Revert()
	if restored, _ := v.Quote(ctx, "DAI", "WETH", FeeTier030, in); !restored.Equals(before) {
		t.Errorf("quote after revert = %s, want %s", restored, before)
	}
}
