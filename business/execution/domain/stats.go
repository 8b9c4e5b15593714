package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flash-arb/internal/asset"
)

// SwapStatistics is the persistent aggregate over all completed attempts.
// Profit figures are kept in display units of the borrow token so different
// tokens can share one aggregate; per-token precision lives in the events.
type SwapStatistics struct {
	TotalAttempts           uint64
	SuccessfulSwaps         uint64
	FailedSwaps             uint64
	CumulativeProfit        decimal.Decimal
	CumulativeFeesCollected decimal.Decimal
	PeakProfit              decimal.Decimal
	PeakProfitToken         string
	LastExecutionTimestamp  time.Time
}

// RecordSuccess folds one profitable attempt into the aggregate.
func (s *SwapStatistics) RecordSuccess(profit, feeCollected asset.Amount, at time.Time) {
	s.TotalAttempts++
	s.SuccessfulSwaps++
	s.LastExecutionTimestamp = at

	p := profit.ToDecimal()
	s.CumulativeProfit = s.CumulativeProfit.Add(p)
	s.CumulativeFeesCollected = s.CumulativeFeesCollected.Add(feeCollected.ToDecimal())

	if p.GreaterThan(s.PeakProfit) {
		s.PeakProfit = p
		s.PeakProfitToken = profit.Asset().Symbol()
	}
}

// RecordFailure folds one failed-but-settled attempt into the aggregate.
func (s *SwapStatistics) RecordFailure(at time.Time) {
	s.TotalAttempts++
	s.FailedSwaps++
	s.LastExecutionTimestamp = at
}

// Reset clears the aggregate. Owner action only.
func (s *SwapStatistics) Reset() {
	*s = SwapStatistics{}
}

// CircuitBreakerState halts new attempts after a run of lender rejections.
// Only lender-level rejection increments the counter; any completed callback
// pass resets it, since reaching repayment proves the execution path works.
type CircuitBreakerState struct {
	ConsecutiveFailures uint32
	MaxAllowedFailures  uint32
}

// Tripped reports whether new attempts must be refused.
func (c CircuitBreakerState) Tripped() bool {
	return c.ConsecutiveFailures >= c.MaxAllowedFailures
}

// RecordRejection counts one lender rejection.
func (c *CircuitBreakerState) RecordRejection() {
	c.ConsecutiveFailures++
}

// Reset clears the failure run.
func (c *CircuitBreakerState) Reset() {
	c.ConsecutiveFailures = 0
}
