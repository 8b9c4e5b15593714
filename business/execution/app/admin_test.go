package app

import (
	"context"
	"testing"

	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/apperror"
)

func TestAdmin_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func(caller string) error
	}{
		{"whitelist", func(c string) error { return f.executor.WhitelistToken(ctx, c, "USDC") }},
		{"delist", func(c string) error { return f.executor.DelistToken(ctx, c, "DAI") }},
		{"approve_venue", func(c string) error { return f.executor.ApproveVenue(ctx, c, "venue-a") }},
		{"revoke_venue", func(c string) error { return f.executor.RevokeVenue(ctx, c, "venue-a") }},
		{"set_slippage", func(c string) error { return f.executor.SetSlippageTolerance(ctx, c, 100) }},
		{"set_max_failures", func(c string) error { return f.executor.SetMaxConsecutiveFailures(ctx, c, 5) }},
		{"reset_breaker", func(c string) error { return f.executor.ResetCircuitBreaker(ctx, c) }},
		{"reset_stats", func(c string) error { return f.executor.ResetStatistics(ctx, c) }},
		{"set_fees", func(c string) error {
			return f.executor.SetFeeConfiguration(ctx, c, domain.FeeConfiguration{})
		}},
		{"pause", func(c string) error { return f.executor.Pause(ctx, c) }},
		{"unpause", func(c string) error { return f.executor.Unpause(ctx, c) }},
		{"deposit", func(c string) error { return f.executor.Deposit(ctx, c, dai(t, "1")) }},
		{"emergency_withdraw", func(c string) error {
			_, err := f.executor.EmergencyWithdraw(ctx, c)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call("mallory")
			if !apperror.IsCode(err, apperror.CodeUnauthorized) {
				t.Errorf("got %v, want Unauthorized", err)
			}
		})
	}
}

func TestAdmin_WhitelistIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// DAI is already whitelisted; only USDC is a real transition.
	err := f.executor.WhitelistTokens(ctx, "owner", []string{"DAI", "USDC"})
	if err != nil {
		t.Fatalf("WhitelistTokens: %v", err)
	}
	if got := f.events.count(domain.EventTokenWhitelisted); got != 1 {
		t.Errorf("whitelist events = %d, want 1", got)
	}

	// Delisting a token that was never listed is a silent no-op.
	if err := f.executor.DelistToken(ctx, "owner", "USDT"); err != nil {
		t.Fatalf("DelistToken: %v", err)
	}
	if got := f.events.count(domain.EventTokenDelisted); got != 0 {
		t.Errorf("delist events = %d, want 0", got)
	}
}

func TestAdmin_VenueLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Approving a venue with no registered adapter is an error, not a no-op.
	err := f.executor.ApproveVenue(ctx, "owner", "ghost")
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}

	if err := f.executor.RevokeVenue(ctx, "owner", "venue-a"); err != nil {
		t.Fatalf("RevokeVenue: %v", err)
	}
	if err := f.executor.ApproveVenue(ctx, "owner", "venue-a"); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if got := f.events.count(domain.EventVenueRevoked); got != 1 {
		t.Errorf("revoke events = %d, want 1", got)
	}
	if got := f.events.count(domain.EventVenueApproved); got != 1 {
		t.Errorf("approve events = %d, want 1", got)
	}

	// Adapter survived revocation, so execution works again.
	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage after re-approval: %v", err)
	}
}

func TestAdmin_ParameterCeilings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.executor.SetSlippageTolerance(ctx, "owner", 1001)
	if !apperror.IsCode(err, apperror.CodeValidationError) {
		t.Errorf("slippage above ceiling: got %v, want ValidationError", err)
	}
	if got := f.executor.SlippageToleranceBps(); got != 50 {
		t.Errorf("slippage = %d, want unchanged 50", got)
	}

	err = f.executor.SetMaxConsecutiveFailures(ctx, "owner", 0)
	if !apperror.IsCode(err, apperror.CodeValidationError) {
		t.Errorf("zero threshold: got %v, want ValidationError", err)
	}

	err = f.executor.SetFeeConfiguration(ctx, "owner", domain.FeeConfiguration{
		PercentageBps: 3001,
		Recipient:     "treasury",
		Enabled:       true,
	})
	if !apperror.IsCode(err, apperror.CodeValidationError) {
		t.Errorf("fee above ceiling: got %v, want ValidationError", err)
	}

	err = f.executor.SetFeeConfiguration(ctx, "owner", domain.FeeConfiguration{
		PercentageBps: 1000,
		Enabled:       true,
	})
	if !apperror.IsCode(err, apperror.CodeValidationError) {
		t.Errorf("enabled without recipient: got %v, want ValidationError", err)
	}
}

func TestAdmin_PauseGatesMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.executor.Pause(ctx, "owner"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !f.executor.IsPaused() {
		t.Fatal("IsPaused = false after Pause")
	}

	// Routine mutations are refused while paused.
	err := f.executor.WhitelistToken(ctx, "owner", "USDC")
	if !apperror.IsCode(err, apperror.CodePaused) {
		t.Errorf("whitelist while paused: got %v, want Paused", err)
	}
	err = f.executor.SetSlippageTolerance(ctx, "owner", 100)
	if !apperror.IsCode(err, apperror.CodePaused) {
		t.Errorf("set slippage while paused: got %v, want Paused", err)
	}

	// Pausing twice is idempotent and emits one event total.
	if err := f.executor.Pause(ctx, "owner"); err != nil {
		t.Fatalf("second Pause: %v", err)
	}
	if got := f.events.count(domain.EventPaused); got != 1 {
		t.Errorf("pause events = %d, want 1", got)
	}

	if err := f.executor.Unpause(ctx, "owner"); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if err := f.executor.WhitelistToken(ctx, "owner", "USDC"); err != nil {
		t.Errorf("whitelist after unpause: %v", err)
	}
}

func TestAdmin_EmergencyWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.executor.Deposit(ctx, "owner", dai(t, "500")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	// Refused while running.
	_, err := f.executor.EmergencyWithdraw(ctx, "owner")
	if !apperror.IsCode(err, apperror.CodeInvalidState) {
		t.Fatalf("got %v, want InvalidState while unpaused", err)
	}

	if err := f.executor.Pause(ctx, "owner"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	swept, err := f.executor.EmergencyWithdraw(ctx, "owner")
	if err != nil {
		t.Fatalf("EmergencyWithdraw: %v", err)
	}
	if !swept["DAI"].Equals(dai(t, "500")) {
		t.Errorf("swept = %s, want 500 DAI", swept["DAI"])
	}
	if !f.executor.OwnerPayouts()["DAI"].Equals(dai(t, "500")) {
		t.Errorf("owner payout = %s, want 500 DAI", f.executor.OwnerPayouts()["DAI"])
	}
	if balance, ok := f.executor.VaultBalances()["DAI"]; ok && !balance.IsZero() {
		t.Errorf("vault = %s, want empty", balance)
	}
	if got := f.events.count(domain.EventEmergencyWithdrawal); got != 1 {
		t.Errorf("withdrawal events = %d, want 1", got)
	}
}

func TestAdmin_HealthCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if h := f.executor.HealthCheck(); !h.Healthy || h.Status != "operational" {
		t.Fatalf("fresh executor health = %+v", h)
	}

	if err := f.executor.RevokeVenue(ctx, "owner", "venue-a"); err != nil {
		t.Fatal(err)
	}
	if err := f.executor.RevokeVenue(ctx, "owner", "venue-b"); err != nil {
		t.Fatal(err)
	}
	if h := f.executor.HealthCheck(); h.Healthy || h.Status != "no venues approved" {
		t.Errorf("health without venues = %+v", h)
	}

	if err := f.executor.Pause(ctx, "owner"); err != nil {
		t.Fatal(err)
	}
	if h := f.executor.HealthCheck(); h.Healthy || h.Status != "paused" {
		t.Errorf("health while paused = %+v", h)
	}
}
