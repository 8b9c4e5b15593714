// Package venue provides in-memory liquidity venue adapters.
package venue

import (
	"math/big"
	"sort"
	"strings"

	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
)

// pool is one two-sided reserve pair. Reserves are raw smallest-unit values.
type pool struct {
	tokenA   *asset.Asset
	tokenB   *asset.Asset
	reserveA *big.Int
	reserveB *big.Int
}

// pairKey is the canonical (order-independent) identifier for a token pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// reservesFor orients the pool's reserves for a swap of tokenIn.
func (p *pool) reservesFor(tokenIn string) (reserveIn, reserveOut *big.Int, out *asset.Asset, ok bool) {
	switch tokenIn {
	case p.tokenA.Symbol():
		return p.reserveA, p.reserveB, p.tokenB, true
	case p.tokenB.Symbol():
		return p.reserveB, p.reserveA, p.tokenA, true
	default:
		return nil, nil, nil, false
	}
}

// apply moves amountIn into the pool and amountOut out of it, returning a
// closure that restores the prior reserves.
func (p *pool) apply(tokenIn string, amountIn, amountOut *big.Int) func() {
	prevA := new(big.Int).Set(p.reserveA)
	prevB := new(big.Int).Set(p.reserveB)

	if tokenIn == p.tokenA.Symbol() {
		p.reserveA.Add(p.reserveA, amountIn)
		p.reserveB.Sub(p.reserveB, amountOut)
	} else {
		p.reserveB.Add(p.reserveB, amountIn)
		p.reserveA.Sub(p.reserveA, amountOut)
	}

	return func() {
		p.reserveA.Set(prevA)
		p.reserveB.Set(prevB)
	}
}

// getAmountOut is the constant-product output formula with the fee taken
// from the input side. feeDivisor scales feeUnits: 10000 for basis points,
// 1000000 for Uniswap V3 style fee tiers.
func getAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeUnits, feeDivisor int64) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeDivisor-feeUnits))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(feeDivisor))
	denominator.Add(denominator, inWithFee)

	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return numerator.Div(numerator, denominator)
}

// buildPool resolves one configured pool against the registry.
func buildPool(pc config.PoolConfig, registry *asset.Registry) (*pool, error) {
	tokenA, ok := registry.GetBySymbolAndChain(pc.TokenA, asset.ChainIDEthereum)
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("pool references unknown token "+pc.TokenA))
	}
	tokenB, ok := registry.GetBySymbolAndChain(pc.TokenB, asset.ChainIDEthereum)
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("pool references unknown token "+pc.TokenB))
	}

	reserveA, err := asset.ParseFloat64(tokenA, pc.ReserveA)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid reserve for "+pc.TokenA))
	}
	reserveB, err := asset.ParseFloat64(tokenB, pc.ReserveB)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid reserve for "+pc.TokenB))
	}

	return &pool{
		tokenA:   tokenA,
		tokenB:   tokenB,
		reserveA: reserveA.Raw(),
		reserveB: reserveB.Raw(),
	}, nil
}

// hopCandidates lists the symbols a routed path may pass through, in a
// deterministic order.
func hopCandidates(pools map[string]*pool) []string {
	seen := make(map[string]bool)
	for _, p := range pools {
		seen[p.tokenA.Symbol()] = true
		seen[p.tokenB.Symbol()] = true
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// describePath renders a path for error context.
func describePath(path []string) string {
	return strings.Join(path, " -> ")
}
