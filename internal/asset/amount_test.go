package asset_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 WETH = 1e18 wei
	oneWETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))

	if oneWETH.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneWETH.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneWETH.String() != "1 WETH" {
		t.Errorf("expected '1 WETH', got '%s'", oneWETH.String())
	}
}

func TestAmount_Add(t *testing.T) {
	one := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	two := asset.NewAmount(asset.WETH, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneWETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDC, big.NewInt(1e6))

	if _, err := oneWETH.Add(oneUSDC); err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	one := asset.NewAmount(asset.DAI, big.NewInt(1e18))
	two := asset.NewAmount(asset.DAI, big.NewInt(2e18))

	if _, err := one.Sub(two); err == nil {
		t.Error("expected error for negative result")
	}
}

func TestAmount_PremiumMath(t *testing.T) {
	// 9 bps of a 10000 DAI principal is 9 DAI.
	principal, err := asset.ParseString(asset.DAI, "10000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	premium, err := principal.MulBig(big.NewInt(9)).DivBig(big.NewInt(10000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !premium.ToDecimal().Equal(decimal.NewFromInt(9)) {
		t.Errorf("expected 9, got %s", premium.ToDecimal().String())
	}

	owed := principal.MustAdd(premium)
	if !owed.ToDecimal().Equal(decimal.NewFromInt(10009)) {
		t.Errorf("expected 10009, got %s", owed.ToDecimal().String())
	}
}

func TestParseDecimal(t *testing.T) {
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.WETH, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// USDC has 6 decimals, 1.1234567 has 7
	d := decimal.NewFromFloat(1.1234567)
	if _, err := asset.ParseDecimal(asset.USDC, d); err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestAssetID_Identity(t *testing.T) {
	usdcEth := asset.NewTokenAssetID(1, asset.AddrUSDCEthereum)
	usdcEth2 := asset.NewTokenAssetID(1, asset.AddrUSDCEthereum)

	if !usdcEth.Equals(usdcEth2) {
		t.Error("same asset should have equal IDs")
	}

	usdcPolygon := asset.NewTokenAssetID(137, asset.AddrUSDCEthereum)
	if usdcEth.Equals(usdcPolygon) {
		t.Error("different chains should have different IDs")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	eth, ok := r.GetNative(asset.ChainIDEthereum)
	if !ok {
		t.Fatal("ETH not found in registry")
	}
	if eth.Symbol() != "ETH" {
		t.Errorf("expected ETH, got %s", eth.Symbol())
	}

	dai, ok := r.GetBySymbolAndChain("DAI", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("DAI not found in registry")
	}
	if dai.Decimals() != 18 {
		t.Errorf("expected 18 decimals, got %d", dai.Decimals())
	}
}
