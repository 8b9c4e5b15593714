package app

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/logger"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordedEvents) Record(_ context.Context, e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// stubFacility grants every loan at a fixed premium unless rejectWith is set.
type stubFacility struct {
	name       string
	premiumBps int64
	rejectWith error
	calls      int
	grants     int
}

func (f *stubFacility) Name() string { return f.name }

func (f *stubFacility) RequestLoan(ctx context.Context, amount asset.Amount, data []byte, borrower Borrower) error {
	f.calls++
	if f.rejectWith != nil {
		return f.rejectWith
	}
	f.grants++

	premium := amount.MulBig(big.NewInt(f.premiumBps))
	premium, _ = premium.DivBig(big.NewInt(10000))
	return borrower.OnLoanGranted(ctx, f.name, amount, premium, data)
}

// stubVenue returns fixed quote and swap outputs.
type stubVenue struct {
	id       string
	outAsset *asset.Asset
	quoteOut asset.Amount
	swapOut  asset.Amount
	noQuote  bool

	swapped  bool
	reverted bool
	onSwap   func(ctx context.Context)
}

func (v *stubVenue) ID() string { return v.id }

func (v *stubVenue) Quote(_ context.Context, _, _ string, _ int64, _ asset.Amount) (asset.Amount, error) {
	if v.noQuote {
		return asset.Zero(v.outAsset), nil
	}
	return v.quoteOut, nil
}

func (v *stubVenue) Swap(ctx context.Context, _, _ string, _ int64, _, minAmountOut asset.Amount, _ time.Time) (SwapResult, error) {
	if v.onSwap != nil {
		v.onSwap(ctx)
	}
	if lt, _ := v.swapOut.LessThan(minAmountOut); lt {
		return SwapResult{}, apperror.New(apperror.CodeInsufficientOutput)
	}
	v.swapped = true
	return SwapResult{
		AmountOut: v.swapOut,
		Revert:    func() { v.reverted = true },
	}, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

func dai(t *testing.T, s string) asset.Amount {
	t.Helper()
	a, err := asset.ParseString(asset.DAI, s)
	if err != nil {
		t.Fatalf("ParseString(%s): %v", s, err)
	}
	return a
}

func weth(t *testing.T, s string) asset.Amount {
	t.Helper()
	a, err := asset.ParseString(asset.WETH, s)
	if err != nil {
		t.Fatalf("ParseString(%s): %v", s, err)
	}
	return a
}

type fixture struct {
	executor *Executor
	facility *stubFacility
	venueA   *stubVenue
	venueB   *stubVenue
	events   *recordedEvents
}

// newFixture wires an executor around a profitable round trip by default:
// borrow 10,000 DAI, swap to 100 WETH on venue a, back to 10,200 DAI on
// venue b, premium 9 bps (9 DAI), so profit is 191 DAI.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	facility := &stubFacility{name: "memory-lender", premiumBps: 9}
	venueA := &stubVenue{
		id:       "venue-a",
		outAsset: asset.WETH,
		quoteOut: weth(t, "100"),
		swapOut:  weth(t, "100"),
	}
	venueB := &stubVenue{
		id:       "venue-b",
		outAsset: asset.DAI,
		quoteOut: dai(t, "10200"),
		swapOut:  dai(t, "10200"),
	}
	events := &recordedEvents{}

	log := logger.New(io.Discard, logger.LevelError, "test", nil)

	executor, err := NewExecutor(ExecutorParams{
		Owner:                  "owner",
		SlippageToleranceBps:   50,
		MaxConsecutiveFailures: 3,
		WhitelistedTokens:      []string{"DAI", "WETH"},
	}, facility, []VenueAdapter{venueA, venueB}, asset.DefaultRegistry(), events, log)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	return &fixture{
		executor: executor,
		facility: facility,
		venueA:   venueA,
		venueB:   venueB,
		events:   events,
	}
}

func (f *fixture) request(t *testing.T) domain.ArbitrageRequest {
	t.Helper()
	return domain.ArbitrageRequest{
		BorrowToken:       "DAI",
		IntermediateToken: "WETH",
		Amount:            dai(t, "10000"),
		VenueA:            "venue-a",
		VenueB:            "venue-b",
		Deadline:          time.Now().Add(time.Minute),
	}
}

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

func TestExecutor_ProfitableRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage: %v", err)
	}

	stats := f.executor.Statistics()
	if stats.TotalAttempts != 1 || stats.SuccessfulSwaps != 1 {
		t.Errorf("stats = %+v, want one successful attempt", stats)
	}
	if stats.PeakProfitToken != "DAI" {
		t.Errorf("PeakProfitToken = %s, want DAI", stats.PeakProfitToken)
	}

	// Fees disabled: the whole 191 DAI profit accrues to the owner.
	owner := f.executor.OwnerPayouts()
	if !owner["DAI"].Equals(dai(t, "191")) {
		t.Errorf("owner payout = %s, want 191 DAI", owner["DAI"])
	}

	// Borrowed funds fully round-tripped: the vault holds nothing.
	if balance, ok := f.executor.VaultBalances()["DAI"]; ok && !balance.IsZero() {
		t.Errorf("vault balance = %s, want zero", balance)
	}

	if f.executor.Breaker().ConsecutiveFailures != 0 {
		t.Error("completed pass must leave the breaker at zero")
	}
	if f.events.count(domain.EventProfitDistributed) != 1 {
		t.Error("expected one profit distribution event")
	}
	if f.events.count(domain.EventArbitrageExecuted) != 1 {
		t.Error("expected one execution event")
	}
}

func TestExecutor_FeeSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.executor.SetFeeConfiguration(ctx, "owner", domain.FeeConfiguration{
		PercentageBps: 1000,
		Recipient:     "treasury",
		Enabled:       true,
	})
	if err != nil {
		t.Fatalf("SetFeeConfiguration: %v", err)
	}

	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage: %v", err)
	}

	// 10% of 191 DAI to the fee recipient, the rest to the owner.
	if got := f.executor.FeePayouts()["DAI"]; !got.Equals(dai(t, "19.1")) {
		t.Errorf("fee payout = %s, want 19.1 DAI", got)
	}
	if got := f.executor.OwnerPayouts()["DAI"]; !got.Equals(dai(t, "171.9")) {
		t.Errorf("owner payout = %s, want 171.9 DAI", got)
	}
}

func TestExecutor_CircuitBreakerTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.facility.rejectWith = apperror.New(apperror.CodeLoanRejected)

	for i := 0; i < 3; i++ {
		err := f.executor.RequestArbitrage(ctx, f.request(t))
		if !apperror.IsCode(err, apperror.CodeLoanRejected) {
			t.Fatalf("attempt %d: got %v, want LoanRejected", i, err)
		}
	}
	if f.facility.calls != 3 {
		t.Fatalf("facility calls = %d, want 3", f.facility.calls)
	}

	// Threshold reached: the next request is refused before the facility.
	err := f.executor.RequestArbitrage(ctx, f.request(t))
	if !apperror.IsCode(err, apperror.CodeCircuitBreakerOpen) {
		t.Fatalf("got %v, want CircuitBreakerOpen", err)
	}
	if f.facility.calls != 3 {
		t.Error("tripped breaker must not reach the facility")
	}
	if f.events.count(domain.EventLoanRejected) != 3 {
		t.Errorf("loan rejection events = %d, want 3", f.events.count(domain.EventLoanRejected))
	}

	// Owner reset restores admission.
	if err := f.executor.ResetCircuitBreaker(ctx, "owner"); err != nil {
		t.Fatalf("ResetCircuitBreaker: %v", err)
	}
	f.facility.rejectWith = nil
	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("post-reset attempt: %v", err)
	}
}

func TestExecutor_SuccessResetsBreaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.facility.rejectWith = apperror.New(apperror.CodeLoanRejected)
	f.executor.RequestArbitrage(ctx, f.request(t))
	f.executor.RequestArbitrage(ctx, f.request(t))
	if f.executor.Breaker().ConsecutiveFailures != 2 {
		t.Fatalf("failures = %d, want 2", f.executor.Breaker().ConsecutiveFailures)
	}

	f.facility.rejectWith = nil
	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage: %v", err)
	}
	if f.executor.Breaker().ConsecutiveFailures != 0 {
		t.Error("a single completed attempt must reset the counter to zero")
	}
}

func TestExecutor_ZeroOutputFirstSwap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.venueA.noQuote = true

	// Float to cover the 9 DAI premium on a profit-less settlement.
	if err := f.executor.Deposit(ctx, "owner", dai(t, "9")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage: %v", err)
	}

	if f.venueB.swapped {
		t.Error("second swap must not run after a dead first leg")
	}

	stats := f.executor.Statistics()
	if stats.FailedSwaps != 1 || stats.SuccessfulSwaps != 0 {
		t.Errorf("stats = %+v, want one failed attempt", stats)
	}

	// Only lender rejection moves the breaker; swap failures do not.
	if f.executor.Breaker().ConsecutiveFailures != 0 {
		t.Error("swap-level failure must not increment the breaker")
	}

	// Loan repaid in full out of the float.
	if balance, ok := f.executor.VaultBalances()["DAI"]; ok && !balance.IsZero() {
		t.Errorf("vault balance = %s, want zero after repayment", balance)
	}
	if f.events.count(domain.EventSwapFailed) != 1 {
		t.Error("expected one swap failure event")
	}
}

func TestExecutor_SlippageGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Quote promises 100 WETH but the fill would deliver 90: below the
	// 99.5 floor at 50 bps tolerance, so the venue refuses the swap.
	f.venueA.swapOut = weth(t, "90")

	if err := f.executor.Deposit(ctx, "owner", dai(t, "9")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("RequestArbitrage: %v", err)
	}

	if f.venueA.swapped {
		t.Error("bad fill must never complete")
	}
	stats := f.executor.Statistics()
	if stats.FailedSwaps != 1 {
		t.Errorf("FailedSwaps = %d, want 1", stats.FailedSwaps)
	}
}

func TestExecutor_RepaymentShortfallUnwindsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First leg fills, second leg misses its floor. The vault is left
	// holding WETH, cannot cover the DAI owed, and the whole attempt
	// must unwind: no statistics, no vault change, venue state restored.
	f.venueB.swapOut = dai(t, "10148")

	err := f.executor.RequestArbitrage(ctx, f.request(t))
	if !apperror.IsCode(err, apperror.CodeRepaymentShortfall) {
		t.Fatalf("got %v, want RepaymentShortfall", err)
	}

	if !f.venueA.reverted {
		t.Error("first swap must be reverted on unwind")
	}
	if stats := f.executor.Statistics(); stats.TotalAttempts != 0 {
		t.Errorf("stats survived an unwind: %+v", stats)
	}
	for symbol, balance := range f.executor.VaultBalances() {
		if !balance.IsZero() {
			t.Errorf("vault %s = %s, want empty after unwind", symbol, balance)
		}
	}
	if len(f.executor.OwnerPayouts()) != 0 {
		t.Error("payouts survived an unwind")
	}
	if f.events.count(domain.EventSwapFailed) != 0 {
		t.Error("no events may be recorded for an unwound attempt")
	}
}

func TestExecutor_ReentrancyRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var nestedRequestErr, nestedCallbackErr error
	f.venueA.onSwap = func(ctx context.Context) {
		nestedRequestErr = f.executor.RequestArbitrage(ctx, f.request(t))
		nestedCallbackErr = f.executor.OnLoanGranted(ctx, "memory-lender",
			dai(t, "1"), dai(t, "0"), nil)
	}

	if err := f.executor.RequestArbitrage(ctx, f.request(t)); err != nil {
		t.Fatalf("outer attempt: %v", err)
	}

	if !apperror.IsCode(nestedRequestErr, apperror.CodeReentrantCall) {
		t.Errorf("nested request: got %v, want ReentrantCall", nestedRequestErr)
	}
	if !apperror.IsCode(nestedCallbackErr, apperror.CodeReentrantCall) {
		t.Errorf("nested callback: got %v, want ReentrantCall", nestedCallbackErr)
	}
}

func TestExecutor_CallbackAuthorization(t *testing.T) {
	f := newFixture(t)

	err := f.executor.OnLoanGranted(context.Background(), "mallory",
		dai(t, "10000"), dai(t, "9"), nil)
	if !apperror.IsCode(err, apperror.CodeUnauthorized) {
		t.Fatalf("got %v, want Unauthorized", err)
	}
}

func TestExecutor_Admission(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		prepare  func(t *testing.T, f *fixture)
		mutate   func(t *testing.T, req *domain.ArbitrageRequest)
		wantCode apperror.Code
	}{
		{
			name: "paused",
			prepare: func(t *testing.T, f *fixture) {
				if err := f.executor.Pause(ctx, "owner"); err != nil {
					t.Fatal(err)
				}
			},
			wantCode: apperror.CodePaused,
		},
		{
			name: "borrow_token_not_whitelisted",
			mutate: func(t *testing.T, req *domain.ArbitrageRequest) {
				req.BorrowToken = "USDT"
			},
			wantCode: apperror.CodeTokenNotWhitelisted,
		},
		{
			name: "venue_not_approved",
			prepare: func(t *testing.T, f *fixture) {
				if err := f.executor.RevokeVenue(ctx, "owner", "venue-b"); err != nil {
					t.Fatal(err)
				}
			},
			wantCode: apperror.CodeVenueNotApproved,
		},
		{
			name: "expired_deadline",
			mutate: func(t *testing.T, req *domain.ArbitrageRequest) {
				req.Deadline = time.Now().Add(-time.Second)
			},
			wantCode: apperror.CodeDeadlineExpired,
		},
		{
			name: "zero_amount",
			mutate: func(t *testing.T, req *domain.ArbitrageRequest) {
				req.Amount = dai(t, "0")
			},
			wantCode: apperror.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.prepare != nil {
				tt.prepare(t, f)
			}
			req := f.request(t)
			if tt.mutate != nil {
				tt.mutate(t, &req)
			}

			err := f.executor.RequestArbitrage(ctx, req)
			if !apperror.IsCode(err, tt.wantCode) {
				t.Errorf("got %v, want %s", err, tt.wantCode)
			}
			if f.facility.calls != 0 {
				t.Error("admission failure must not reach the facility")
			}
		})
	}
}
