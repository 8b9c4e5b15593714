package app

import (
	"context"
	"strconv"

	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
)

// The admin surface. Every mutating operation checks the caller against the
// owner identity, refuses while paused (except Unpause and the emergency
// path), and emits one audit event per actual state transition. Calls that
// change nothing succeed silently so retries stay idempotent.

func (e *Executor) authorize(caller string) error {
	if caller != e.owner {
		return apperror.New(apperror.CodeUnauthorized,
			apperror.WithContext("caller "+caller+" is not the owner"))
	}
	return nil
}

func (e *Executor) guardMutation(caller string) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if e.paused {
		return apperror.New(apperror.CodePaused)
	}
	return nil
}

// WhitelistToken adds a token to the whitelisted set.
func (e *Executor) WhitelistToken(ctx context.Context, caller, token string) error {
	return e.WhitelistTokens(ctx, caller, []string{token})
}

// WhitelistTokens adds a batch of tokens to the whitelisted set.
func (e *Executor) WhitelistTokens(ctx context.Context, caller string, tokens []string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}

	var added []string
	for _, token := range tokens {
		if token == "" {
			e.mu.Unlock()
			return apperror.New(apperror.CodeValidationError,
				apperror.WithContext("empty token identifier"))
		}
		if !e.whitelist[token] {
			e.whitelist[token] = true
			added = append(added, token)
		}
	}
	e.mu.Unlock()

	for _, token := range added {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventTokenWhitelisted, "token", token))
	}
	return nil
}

// DelistToken removes a token from the whitelisted set.
func (e *Executor) DelistToken(ctx context.Context, caller, token string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.whitelist[token]
	delete(e.whitelist, token)
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventTokenDelisted, "token", token))
	}
	return nil
}

// ApproveVenue marks a registered venue as usable for execution.
func (e *Executor) ApproveVenue(ctx context.Context, caller, venueID string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if _, ok := e.venues[venueID]; !ok {
		e.mu.Unlock()
		return apperror.New(apperror.CodeNotFound,
			apperror.WithContext("venue "+venueID+" has no registered adapter"))
	}
	changed := !e.approved[venueID]
	e.approved[venueID] = true
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventVenueApproved, "venue", venueID))
	}
	return nil
}

// RevokeVenue removes a venue from the approved set. The adapter stays
// registered so approval can be restored later.
func (e *Executor) RevokeVenue(ctx context.Context, caller, venueID string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.approved[venueID]
	delete(e.approved, venueID)
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventVenueRevoked, "venue", venueID))
	}
	return nil
}

// SetSlippageTolerance updates the slippage floor applied to every swap.
func (e *Executor) SetSlippageTolerance(ctx context.Context, caller string, bps int64) error {
	if bps < 0 || bps > config.MaxSlippageToleranceBps {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithContext("slippage tolerance must be within "+
				strconv.Itoa(config.MaxSlippageToleranceBps)+" bps"))
	}

	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.slippage != bps
	e.slippage = bps
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventSlippageUpdated,
			"bps", strconv.FormatInt(bps, 10)))
	}
	return nil
}

// SetMaxConsecutiveFailures updates the circuit breaker threshold.
func (e *Executor) SetMaxConsecutiveFailures(ctx context.Context, caller string, max uint32) error {
	if max < 1 {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithContext("max consecutive failures must be at least 1"))
	}

	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.breaker.MaxAllowedFailures != max
	e.breaker.MaxAllowedFailures = max
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventMaxFailuresUpdated,
			"max", strconv.FormatUint(uint64(max), 10)))
	}
	return nil
}

// ResetCircuitBreaker clears the consecutive failure counter.
func (e *Executor) ResetCircuitBreaker(ctx context.Context, caller string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.breaker.ConsecutiveFailures != 0
	e.breaker.Reset()
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventCircuitBreakerReset))
	}
	return nil
}

// ResetStatistics clears the swap statistics aggregate.
func (e *Executor) ResetStatistics(ctx context.Context, caller string) error {
	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	e.stats.Reset()
	e.mu.Unlock()

	e.recorder.Record(ctx, domain.NewEvent(domain.EventStatisticsReset))
	return nil
}

// SetFeeConfiguration replaces the profit fee split parameters.
func (e *Executor) SetFeeConfiguration(ctx context.Context, caller string, fees domain.FeeConfiguration) error {
	if err := validateFees(fees); err != nil {
		return err
	}

	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.fees != fees
	e.fees = fees
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventFeeConfigUpdated,
			"bps", strconv.FormatInt(fees.PercentageBps, 10),
			"recipient", fees.Recipient,
			"enabled", boolString(fees.Enabled)))
	}
	return nil
}

// Pause disables all mutating operations except Unpause and the emergency
// withdrawal.
func (e *Executor) Pause(ctx context.Context, caller string) error {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := !e.paused
	e.paused = true
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventPaused))
	}
	return nil
}

// Unpause restores normal operation.
func (e *Executor) Unpause(ctx context.Context, caller string) error {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	changed := e.paused
	e.paused = false
	e.mu.Unlock()

	if changed {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventUnpaused))
	}
	return nil
}

// Deposit credits the vault. The float covers flash-loan premiums on
// attempts that settle without profit.
func (e *Executor) Deposit(ctx context.Context, caller string, amount asset.Amount) error {
	if !amount.IsPositive() {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithContext("deposit must be positive"))
	}

	e.mu.Lock()
	if err := e.guardMutation(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	creditInto(e.vault, amount)
	e.mu.Unlock()

	e.recorder.Record(ctx, domain.NewEvent(domain.EventVaultDeposit,
		"amount", amount.String()))
	return nil
}

// EmergencyWithdraw sweeps every vault balance to the owner. Last-resort
// recovery, only permitted while paused, distinct from profit distribution.
func (e *Executor) EmergencyWithdraw(ctx context.Context, caller string) (map[string]asset.Amount, error) {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if !e.paused {
		e.mu.Unlock()
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("emergency withdrawal requires the executor to be paused"))
	}

	swept := e.vault
	e.vault = make(map[string]asset.Amount)
	for _, amount := range swept {
		creditInto(e.ownerOwed, amount)
	}
	e.mu.Unlock()

	for symbol, amount := range swept {
		e.recorder.Record(ctx, domain.NewEvent(domain.EventEmergencyWithdrawal,
			"token", symbol,
			"amount", amount.String()))
	}
	return swept, nil
}

// Statistics returns a copy of the current aggregate.
func (e *Executor) Statistics() domain.SwapStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Breaker returns the current circuit breaker state.
func (e *Executor) Breaker() domain.CircuitBreakerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breaker
}

// IsPaused reports the pause flag.
func (e *Executor) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SlippageToleranceBps returns the current slippage setting.
func (e *Executor) SlippageToleranceBps() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slippage
}

// FeeConfiguration returns the current fee split parameters.
func (e *Executor) FeeConfiguration() domain.FeeConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fees
}

// VaultBalances returns a copy of the executor's token balances.
func (e *Executor) VaultBalances() map[string]asset.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBalances(e.vault)
}

// OwnerPayouts returns the balances accrued to the owner.
func (e *Executor) OwnerPayouts() map[string]asset.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBalances(e.ownerOwed)
}

// FeePayouts returns the balances accrued to the fee recipient.
func (e *Executor) FeePayouts() map[string]asset.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBalances(e.feeOwed)
}

// HealthCheck is a pure read over the executor's operational state.
func (e *Executor) HealthCheck() domain.HealthStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	approvedCount := 0
	for id := range e.approved {
		if e.approved[id] {
			approvedCount++
		}
	}

	status := domain.HealthStatus{
		TokenCount:   len(e.whitelist),
		VenueCount:   approvedCount,
		FailureCount: e.breaker.ConsecutiveFailures,
	}

	switch {
	case e.paused:
		status.Status = "paused"
	case e.breaker.Tripped():
		status.Status = "circuit breaker open"
	case status.TokenCount == 0:
		status.Status = "no tokens whitelisted"
	case status.VenueCount == 0:
		status.Status = "no venues approved"
	default:
		status.Healthy = true
		status.Status = "operational"
	}
	return status
}
