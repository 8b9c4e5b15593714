// Package lender provides the in-memory flash-loan facility.
package lender

import (
	"context"
	"math/big"
	"sync"

	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

var bpsDivisor = big.NewInt(10000)

// Ensure Facility implements LoanFacility.
var _ app.LoanFacility = (*Facility)(nil)

// Facility is an in-memory flash-loan pool. A loan is granted only against
// available liquidity, the borrower's callback runs synchronously, and the
// principal plus premium returns to the pool when the callback succeeds. A
// failed callback restores the pool untouched.
type Facility struct {
	name       string
	premiumBps int64
	log        logger.LoggerInterface

	mu        sync.Mutex
	liquidity map[string]asset.Amount
}

// New builds the facility from configuration, resolving pool depths against
// the asset registry.
func New(cfg config.LenderConfig, registry *asset.Registry, log logger.LoggerInterface) (*Facility, error) {
	f := &Facility{
		name:       cfg.Name,
		premiumBps: cfg.PremiumBps,
		log:        log,
		liquidity:  make(map[string]asset.Amount),
	}

	for symbol, depth := range cfg.Liquidity {
		a, ok := registry.GetBySymbolAndChain(symbol, asset.ChainIDEthereum)
		if !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("lender liquidity references unknown token "+symbol))
		}
		amount, err := asset.ParseFloat64(a, depth)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext("invalid liquidity depth for "+symbol))
		}
		f.liquidity[symbol] = amount
	}

	return f, nil
}

// Name returns the facility identity used by the callback authorization
// guard.
func (f *Facility) Name() string {
	return f.name
}

// Premium computes the flat basis-point loan fee for a principal.
func (f *Facility) Premium(amount asset.Amount) asset.Amount {
	premium := amount.MulBig(big.NewInt(f.premiumBps))
	premium, _ = premium.DivBig(bpsDivisor)
	return premium
}

// Liquidity returns the current pool depth for a token symbol.
func (f *Facility) Liquidity(symbol string) (asset.Amount, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.liquidity[symbol]
	return amount, ok
}

// RequestLoan runs the grant-callback-repay cycle. Insufficient liquidity
// or an unsupported asset is a rejection: CodeLoanRejected, callback never
// invoked. Any callback error propagates unchanged with the pool restored.
func (f *Facility) RequestLoan(ctx context.Context, amount asset.Amount, callbackData []byte, borrower app.Borrower) error {
	symbol := amount.Asset().Symbol()

	f.mu.Lock()
	pool, ok := f.liquidity[symbol]
	if !ok {
		f.mu.Unlock()
		return apperror.New(apperror.CodeLoanRejected,
			apperror.WithContext("no liquidity pool for "+symbol))
	}
	remaining, err := pool.Sub(amount)
	if err != nil {
		f.mu.Unlock()
		return apperror.New(apperror.CodeLoanRejected,
			apperror.WithContext("pool depth "+pool.String()+" below requested "+amount.String()))
	}
	f.liquidity[symbol] = remaining
	f.mu.Unlock()

	premium := f.Premium(amount)

	f.log.Debug(ctx, "loan granted",
		"token", symbol,
		"amount", amount.String(),
		"premium", premium.String(),
	)

	if err := borrower.OnLoanGranted(ctx, f.name, amount, premium, callbackData); err != nil {
		// The attempt unwound. Principal never left this process, so the
		// pool is simply restored.
		f.mu.Lock()
		f.liquidity[symbol] = f.liquidity[symbol].MustAdd(amount)
		f.mu.Unlock()
		return err
	}

	// Pull principal plus premium back into the pool.
	f.mu.Lock()
	f.liquidity[symbol] = f.liquidity[symbol].MustAdd(amount).MustAdd(premium)
	f.mu.Unlock()

	return nil
}
