package venue

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

// Ensure ConstantProduct implements VenueAdapter.
var _ app.VenueAdapter = (*ConstantProduct)(nil)

// ConstantProduct is a Uniswap V2 style venue: flat fee, path-based swaps.
// When no direct pool exists for a pair, it routes through one intermediate
// hop. Fee tiers passed by callers are ignored; the venue's flat schedule
// always applies.
type ConstantProduct struct {
	id     string
	feeBps int64
	log    logger.LoggerInterface

	mu    sync.Mutex
	pools map[string]*pool
}

// NewConstantProduct builds the venue from configured pools.
func NewConstantProduct(cfg config.VenueConfig, registry *asset.Registry, log logger.LoggerInterface) (*ConstantProduct, error) {
	v := &ConstantProduct{
		id:     cfg.ID,
		feeBps: cfg.FeeBps,
		log:    log,
		pools:  make(map[string]*pool),
	}

	for _, pc := range cfg.Pools {
		p, err := buildPool(pc, registry)
		if err != nil {
			return nil, err
		}
		v.pools[pairKey(pc.TokenA, pc.TokenB)] = p
	}

	return v, nil
}

// ID returns the venue identifier.
func (v *ConstantProduct) ID() string {
	return v.id
}

// Quote walks the best available path and returns its output. A missing
// path returns zero with no error: the caller treats an unpriceable swap as
// a refused one.
func (v *ConstantProduct) Quote(ctx context.Context, tokenIn, tokenOut string, _ int64, amountIn asset.Amount) (asset.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	path, amounts := v.route(tokenIn, tokenOut, amountIn.Raw())
	if path == nil {
		return asset.Zero(amountIn.Asset()), nil
	}

	outAsset := v.pathOutputAsset(path)
	return asset.NewAmount(outAsset, amounts[len(amounts)-1]), nil
}

// Swap executes the routed path against the reserves, honoring the
// minAmountOut floor. The returned revert restores every touched pool.
func (v *ConstantProduct) Swap(ctx context.Context, tokenIn, tokenOut string, _ int64, amountIn, minAmountOut asset.Amount, deadline time.Time) (app.SwapResult, error) {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return app.SwapResult{}, apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext("swap deadline passed"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	path, amounts := v.route(tokenIn, tokenOut, amountIn.Raw())
	if path == nil {
		return app.SwapResult{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext("no path from "+tokenIn+" to "+tokenOut))
	}

	out := amounts[len(amounts)-1]
	if out.Cmp(minAmountOut.Raw()) < 0 {
		return app.SwapResult{}, apperror.New(apperror.CodeInsufficientOutput,
			apperror.WithContext("path "+describePath(path)+" output below floor"))
	}

	// Commit the hop-by-hop reserve movements.
	reverts := make([]func(), 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		p := v.pools[pairKey(path[i], path[i+1])]
		reverts = append(reverts, p.apply(path[i], amounts[i], amounts[i+1]))
	}

	outAsset := v.pathOutputAsset(path)
	v.log.Debug(ctx, "swap executed",
		"venue", v.id,
		"path", describePath(path),
		"amount_in", amountIn.String(),
		"amount_out", out.String(),
	)

	return app.SwapResult{
		AmountOut: asset.NewAmount(outAsset, out),
		Revert: func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			for i := len(reverts) - 1; i >= 0; i-- {
				reverts[i]()
			}
		},
	}, nil
}

// route finds the direct pair or a single-hop path and computes the amount
// at each step. Returns nil when no path prices the swap. Caller holds the
// lock.
func (v *ConstantProduct) route(tokenIn, tokenOut string, amountIn *big.Int) ([]string, []*big.Int) {
	if direct := v.pools[pairKey(tokenIn, tokenOut)]; direct != nil {
		out := v.hopOut(direct, tokenIn, amountIn)
		if out.Sign() > 0 {
			return []string{tokenIn, tokenOut}, []*big.Int{amountIn, out}
		}
	}

	for _, hop := range hopCandidates(v.pools) {
		if hop == tokenIn || hop == tokenOut {
			continue
		}
		first := v.pools[pairKey(tokenIn, hop)]
		second := v.pools[pairKey(hop, tokenOut)]
		if first == nil || second == nil {
			continue
		}
		mid := v.hopOut(first, tokenIn, amountIn)
		if mid.Sign() == 0 {
			continue
		}
		out := v.hopOut(second, hop, mid)
		if out.Sign() == 0 {
			continue
		}
		return []string{tokenIn, hop, tokenOut}, []*big.Int{amountIn, mid, out}
	}

	return nil, nil
}

func (v *ConstantProduct) hopOut(p *pool, tokenIn string, amountIn *big.Int) *big.Int {
	reserveIn, reserveOut, _, ok := p.reservesFor(tokenIn)
	if !ok {
		return big.NewInt(0)
	}
	return getAmountOut(amountIn, reserveIn, reserveOut, v.feeBps, 10000)
}

func (v *ConstantProduct) pathOutputAsset(path []string) *asset.Asset {
	last := v.pools[pairKey(path[len(path)-2], path[len(path)-1])]
	_, _, out, _ := last.reservesFor(path[len(path)-2])
	return out
}
