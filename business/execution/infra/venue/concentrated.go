package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

// Uniswap V3 style fee tiers, in hundredths of a bip.
const (
	FeeTier001 = 100   // 0.01%
	FeeTier005 = 500   // 0.05%
	FeeTier030 = 3000  // 0.30%
	FeeTier100 = 10000 // 1.00%
)

const feeTierDivisor = 1_000_000

// Ensure Concentrated implements VenueAdapter.
var _ app.VenueAdapter = (*Concentrated)(nil)

// Concentrated is a Uniswap V3 style venue: one pool per (pair, fee tier),
// quote-then-swap, no path routing. A fee tier of zero falls back to the
// venue's default tier.
type Concentrated struct {
	id          string
	defaultTier int64
	log         logger.LoggerInterface

	mu    sync.Mutex
	pools map[string]*pool
}

// NewConcentrated builds the venue from configured tiered pools.
func NewConcentrated(cfg config.VenueConfig, registry *asset.Registry, log logger.LoggerInterface) (*Concentrated, error) {
	v := &Concentrated{
		id:          cfg.ID,
		defaultTier: FeeTier030,
		log:         log,
		pools:       make(map[string]*pool),
	}
	if len(cfg.FeeTiers) > 0 {
		v.defaultTier = cfg.FeeTiers[0]
	}

	for _, pc := range cfg.Pools {
		p, err := buildPool(pc, registry)
		if err != nil {
			return nil, err
		}
		tier := pc.FeeTier
		if tier == 0 {
			tier = v.defaultTier
		}
		v.pools[tierKey(pc.TokenA, pc.TokenB, tier)] = p
	}

	return v, nil
}

func tierKey(a, b string, tier int64) string {
	return fmt.Sprintf("%s@%d", pairKey(a, b), tier)
}

// ID returns the venue identifier.
func (v *Concentrated) ID() string {
	return v.id
}

// Quote prices a single-pool swap at the given fee tier. A missing pool
// yields zero output with no error.
func (v *Concentrated) Quote(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn asset.Amount) (asset.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, tier := v.lookup(tokenIn, tokenOut, feeTier)
	if p == nil {
		return asset.Zero(amountIn.Asset()), nil
	}

	reserveIn, reserveOut, outAsset, ok := p.reservesFor(tokenIn)
	if !ok {
		return asset.Zero(amountIn.Asset()), nil
	}

	out := getAmountOut(amountIn.Raw(), reserveIn, reserveOut, tier, feeTierDivisor)
	return asset.NewAmount(outAsset, out), nil
}

// Swap executes against the tier pool, honoring the minAmountOut floor.
func (v *Concentrated) Swap(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn, minAmountOut asset.Amount, deadline time.Time) (app.SwapResult, error) {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return app.SwapResult{}, apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext("swap deadline passed"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	p, tier := v.lookup(tokenIn, tokenOut, feeTier)
	if p == nil {
		return app.SwapResult{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no %s/%s pool at tier %d", tokenIn, tokenOut, feeTier)))
	}

	reserveIn, reserveOut, outAsset, ok := p.reservesFor(tokenIn)
	if !ok {
		return app.SwapResult{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext("pool does not hold "+tokenIn))
	}

	out := getAmountOut(amountIn.Raw(), reserveIn, reserveOut, tier, feeTierDivisor)
	if out.Cmp(minAmountOut.Raw()) < 0 {
		return app.SwapResult{}, apperror.New(apperror.CodeInsufficientOutput,
			apperror.WithContext(fmt.Sprintf("tier %d output below floor", tier)))
	}

	revert := p.apply(tokenIn, amountIn.Raw(), out)

	v.log.Debug(ctx, "swap executed",
		"venue", v.id,
		"pair", pairKey(tokenIn, tokenOut),
		"fee_tier", tier,
		"amount_in", amountIn.String(),
		"amount_out", out.String(),
	)

	return app.SwapResult{
		AmountOut: asset.NewAmount(outAsset, out),
		Revert: func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			revert()
		},
	}, nil
}

// lookup resolves the pool for a pair and tier, falling back to the default
// tier when the requested one has no pool. Caller holds the lock.
func (v *Concentrated) lookup(tokenIn, tokenOut string, feeTier int64) (*pool, int64) {
	if feeTier == 0 {
		feeTier = v.defaultTier
	}
	if p := v.pools[tierKey(tokenIn, tokenOut, feeTier)]; p != nil {
		return p, feeTier
	}
	if feeTier != v.defaultTier {
		if p := v.pools[tierKey(tokenIn, tokenOut, v.defaultTier)]; p != nil {
			return p, v.defaultTier
		}
	}
	return nil, 0
}
