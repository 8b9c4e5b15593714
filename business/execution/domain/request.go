// Package domain contains the core domain types for the execution context.
package domain

import (
	"time"

	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
)

// ArbitrageRequest is the caller-supplied intent: borrow Amount of
// BorrowToken, swap it to IntermediateToken on VenueA, swap back on VenueB,
// repay the loan and keep the difference. Fee tiers are meaningful only for
// concentrated-liquidity venues; path-based venues ignore them.
type ArbitrageRequest struct {
	BorrowToken       string
	IntermediateToken string
	Amount            asset.Amount
	VenueA            string
	VenueB            string
	VenueAFeeTier     int64
	VenueBFeeTier     int64
	Deadline          time.Time
}

// Validate checks the request's intrinsic invariants. Set membership
// (whitelisted tokens, approved venues) is the executor's concern.
func (r ArbitrageRequest) Validate(now time.Time) error {
	if r.BorrowToken == "" {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("borrow token is required"))
	}
	if r.IntermediateToken == "" {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("intermediate token is required"))
	}
	if r.BorrowToken == r.IntermediateToken {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("borrow and intermediate token must differ"))
	}
	if !r.Amount.IsPositive() {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("loan amount must be positive"))
	}
	if r.VenueA == "" || r.VenueB == "" {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("both venues are required"))
	}
	if !r.Deadline.After(now) {
		return apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext("deadline is not in the future"))
	}
	return nil
}

// ExecutionContext is the ephemeral state of one atomic attempt. It exists
// only between loan grant and repayment and is never persisted.
type ExecutionContext struct {
	ArbitrageRequest

	Premium    asset.Amount
	AmountOwed asset.Amount
}

// NewExecutionContext attaches the lender-computed premium to a request.
func NewExecutionContext(req ArbitrageRequest, premium asset.Amount) (ExecutionContext, error) {
	owed, err := req.Amount.Add(premium)
	if err != nil {
		return ExecutionContext{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithCause(err),
			apperror.WithContext("premium denominated in wrong asset"))
	}
	return ExecutionContext{
		ArbitrageRequest: req,
		Premium:          premium,
		AmountOwed:       owed,
	}, nil
}
