// Package app contains the executor state machine and port definitions for the execution context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/asset"
)

// Borrower receives the flash-loan callback. The facility invokes it within
// the same atomic unit as the grant; a non-nil error unwinds the whole loan.
type Borrower interface {
	// OnLoanGranted runs the borrower's logic against the granted funds.
	// lender carries the facility's identity for the authorization guard.
	OnLoanGranted(ctx context.Context, lender string, amount, premium asset.Amount, callbackData []byte) error
}

// LoanFacility is the flash-loan lender. RequestLoan performs the full
// grant-callback-repay cycle: it computes the premium, invokes the borrower's
// callback, and settles repayment when the callback completes. A rejection
// (insufficient liquidity, unsupported asset) returns CodeLoanRejected
// without invoking the callback.
type LoanFacility interface {
	Name() string
	RequestLoan(ctx context.Context, amount asset.Amount, callbackData []byte, borrower Borrower) error
}

// SwapResult is the outcome of one executed swap. Revert undoes the
// venue-side state change and is called only when the surrounding atomic
// attempt unwinds; stateless venues return a no-op.
type SwapResult struct {
	AmountOut asset.Amount
	Revert    func()
}

// VenueAdapter hides the venue family behind a uniform swap surface.
// Concentrated-liquidity venues honor the fee tier; path-based
// constant-product venues ignore it and use their flat schedule.
type VenueAdapter interface {
	ID() string

	// Quote is best-effort: a zero output with nil error means the venue
	// cannot price the swap, and the caller must not execute blindly.
	Quote(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn asset.Amount) (asset.Amount, error)

	// Swap either delivers at least minAmountOut or fails with
	// CodeInsufficientOutput, leaving the venue unchanged.
	Swap(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn, minAmountOut asset.Amount, deadline time.Time) (SwapResult, error)
}

// EventRecorder receives the audit stream. Recording happens after commit,
// never for attempts that unwound.
type EventRecorder interface {
	Record(ctx context.Context, event domain.Event)
}
