// Package app contains the executor state machine and port definitions for the execution context.
package app

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

const (
	tracerName = "execution"
	meterName  = "execution"
)

var bpsDivisor = big.NewInt(10000)

// Ensure Executor implements the loan callback.
var _ Borrower = (*Executor)(nil)

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	attemptsTotal    metric.Int64Counter
	settledTotal     metric.Int64Counter
	lenderRejections metric.Int64Counter
	profitUSD        metric.Float64Histogram
}

// ExecutorParams are the initial contract-level parameters.
type ExecutorParams struct {
	Owner                  string
	SlippageToleranceBps   int64
	MaxConsecutiveFailures uint32
	Fees                   domain.FeeConfiguration
	WhitelistedTokens      []string
}

// Executor is the flash-loan arbitrage state machine. One attempt runs as a
// single uninterruptible sequence: loan grant, two chained swaps, profit
// split, repayment. All effects of an attempt are staged in a journal and
// either commit together or vanish together.
type Executor struct {
	facility LoanFacility
	registry *asset.Registry
	recorder EventRecorder
	log      logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics

	// mu guards every field below. It is never held across the loan
	// callback; the reentrancy gates serialize the public surface instead,
	// since a nested call arrives on the same goroutine.
	mu        sync.Mutex
	owner     string
	paused    bool
	slippage  int64
	fees      domain.FeeConfiguration
	breaker   domain.CircuitBreakerState
	whitelist map[string]bool
	venues    map[string]VenueAdapter
	approved  map[string]bool
	stats     domain.SwapStatistics
	vault     map[string]asset.Amount
	ownerOwed map[string]asset.Amount
	feeOwed   map[string]asset.Amount

	inFlight   atomic.Bool
	inCallback atomic.Bool
}

// NewExecutor creates the executor with its initial parameter set. The
// provided venue adapters are registered and approved; approval can be
// revoked per venue afterwards.
func NewExecutor(params ExecutorParams, facility LoanFacility, venues []VenueAdapter, registry *asset.Registry, recorder EventRecorder, log logger.LoggerInterface) (*Executor, error) {
	if params.Owner == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("owner identity is required"))
	}
	if params.SlippageToleranceBps < 0 || params.SlippageToleranceBps > config.MaxSlippageToleranceBps {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("slippage tolerance out of range"))
	}
	if params.MaxConsecutiveFailures < 1 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("max consecutive failures must be at least 1"))
	}
	if err := validateFees(params.Fees); err != nil {
		return nil, err
	}

	e := &Executor{
		facility:  facility,
		registry:  registry,
		recorder:  recorder,
		log:       log,
		tracer:    otel.Tracer(tracerName),
		owner:     params.Owner,
		slippage:  params.SlippageToleranceBps,
		fees:      params.Fees,
		breaker:   domain.CircuitBreakerState{MaxAllowedFailures: params.MaxConsecutiveFailures},
		whitelist: make(map[string]bool),
		venues:    make(map[string]VenueAdapter),
		approved:  make(map[string]bool),
		vault:     make(map[string]asset.Amount),
		ownerOwed: make(map[string]asset.Amount),
		feeOwed:   make(map[string]asset.Amount),
	}

	for _, token := range params.WhitelistedTokens {
		e.whitelist[token] = true
	}
	for _, v := range venues {
		e.venues[v.ID()] = v
		e.approved[v.ID()] = true
	}

	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.attemptsTotal, err = meter.Int64Counter(
		"executor_attempts_total",
		metric.WithDescription("Arbitrage requests admitted past the guards"),
	)
	if err != nil {
		return err
	}

	e.metrics.settledTotal, err = meter.Int64Counter(
		"executor_settled_total",
		metric.WithDescription("Attempts that reached repayment, by outcome"),
	)
	if err != nil {
		return err
	}

	e.metrics.lenderRejections, err = meter.Int64Counter(
		"executor_lender_rejections_total",
		metric.WithDescription("Loan requests rejected by the facility"),
	)
	if err != nil {
		return err
	}

	e.metrics.profitUSD, err = meter.Float64Histogram(
		"executor_profit",
		metric.WithDescription("Realized profit per successful attempt, in borrow token units"),
	)
	if err != nil {
		return err
	}

	return nil
}

// callbackPayload is the wire form of a request carried as opaque callback
// data through the loan facility.
type callbackPayload struct {
	BorrowToken       string    `json:"borrowToken"`
	IntermediateToken string    `json:"intermediateToken"`
	AmountRaw         string    `json:"amountRaw"`
	VenueA            string    `json:"venueA"`
	VenueB            string    `json:"venueB"`
	VenueAFeeTier     int64     `json:"venueAFeeTier"`
	VenueBFeeTier     int64     `json:"venueBFeeTier"`
	Deadline          time.Time `json:"deadline"`
}

// RequestArbitrage admits, funds, and settles one arbitrage attempt.
//
// Lender rejection is recoverable: it increments the circuit breaker and
// returns CodeLoanRejected for the caller to retry later. Any error from
// inside the callback is a full unwind; no statistics survive it.
func (e *Executor) RequestArbitrage(ctx context.Context, req domain.ArbitrageRequest) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return apperror.New(apperror.CodeReentrantCall,
			apperror.WithContext("arbitrage request already in flight"))
	}
	defer e.inFlight.Store(false)

	ctx, span := e.tracer.Start(ctx, "execution.request_arbitrage",
		trace.WithAttributes(
			attribute.String("borrow_token", req.BorrowToken),
			attribute.String("venue_a", req.VenueA),
			attribute.String("venue_b", req.VenueB),
		),
	)
	defer span.End()

	if err := e.admit(req); err != nil {
		span.SetStatus(codes.Error, "admission rejected")
		return err
	}

	e.metrics.attemptsTotal.Add(ctx, 1)

	data, err := json.Marshal(callbackPayload{
		BorrowToken:       req.BorrowToken,
		IntermediateToken: req.IntermediateToken,
		AmountRaw:         req.Amount.Raw().String(),
		VenueA:            req.VenueA,
		VenueB:            req.VenueB,
		VenueAFeeTier:     req.VenueAFeeTier,
		VenueBFeeTier:     req.VenueBFeeTier,
		Deadline:          req.Deadline,
	})
	if err != nil {
		return apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}

	if err := e.facility.RequestLoan(ctx, req.Amount, data, e); err != nil {
		if apperror.IsCode(err, apperror.CodeLoanRejected) {
			e.recordLenderRejection(ctx, req)
			span.SetStatus(codes.Error, "loan rejected")
			return err
		}
		span.SetStatus(codes.Error, "attempt unwound")
		return err
	}

	span.SetStatus(codes.Ok, "attempt settled")
	return nil
}

// admit runs the pre-loan guards: pause, circuit breaker, request validity,
// set membership. No capital is committed before this passes.
func (e *Executor) admit(req domain.ArbitrageRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return apperror.New(apperror.CodePaused)
	}
	if e.breaker.Tripped() {
		return apperror.New(apperror.CodeCircuitBreakerOpen,
			apperror.WithContext("consecutive failure limit reached"))
	}
	if err := req.Validate(time.Now()); err != nil {
		return err
	}
	if !e.whitelist[req.BorrowToken] {
		return apperror.New(apperror.CodeTokenNotWhitelisted,
			apperror.WithContext("borrow token "+req.BorrowToken))
	}
	if !e.whitelist[req.IntermediateToken] {
		return apperror.New(apperror.CodeTokenNotWhitelisted,
			apperror.WithContext("intermediate token "+req.IntermediateToken))
	}
	if !e.approved[req.VenueA] {
		return apperror.New(apperror.CodeVenueNotApproved,
			apperror.WithContext("venue "+req.VenueA))
	}
	if !e.approved[req.VenueB] {
		return apperror.New(apperror.CodeVenueNotApproved,
			apperror.WithContext("venue "+req.VenueB))
	}
	return nil
}

func (e *Executor) recordLenderRejection(ctx context.Context, req domain.ArbitrageRequest) {
	e.mu.Lock()
	e.breaker.RecordRejection()
	count := e.breaker.ConsecutiveFailures
	e.mu.Unlock()

	e.metrics.lenderRejections.Add(ctx, 1)
	e.recorder.Record(ctx, domain.NewEvent(domain.EventLoanRejected,
		"token", req.BorrowToken,
		"amount", req.Amount.String(),
	))
	e.log.Warn(ctx, "loan rejected by facility",
		"token", req.BorrowToken,
		"consecutive_failures", count,
	)
}

// OnLoanGranted is the flash-loan callback. It runs the two chained swaps
// against a journal and settles repayment; the committed state is exactly
// the journal at repayment time, or nothing at all.
func (e *Executor) OnLoanGranted(ctx context.Context, lender string, amount, premium asset.Amount, callbackData []byte) error {
	if lender != e.facility.Name() {
		return apperror.New(apperror.CodeUnauthorized,
			apperror.WithContext("loan callback from unrecognized lender "+lender))
	}
	if !e.inCallback.CompareAndSwap(false, true) {
		return apperror.New(apperror.CodeReentrantCall,
			apperror.WithContext("nested loan callback"))
	}
	defer e.inCallback.Store(false)

	ctx, span := e.tracer.Start(ctx, "execution.on_loan_granted",
		trace.WithAttributes(
			attribute.String("amount", amount.String()),
			attribute.String("premium", premium.String()),
		),
	)
	defer span.End()

	req, err := e.decodeCallback(amount, callbackData)
	if err != nil {
		span.SetStatus(codes.Error, "bad callback data")
		return err
	}

	ectx, err := domain.NewExecutionContext(req, premium)
	if err != nil {
		return err
	}

	j := e.newJournal()
	j.credit(amount)

	outcome, err := e.runSwaps(ctx, j, ectx)
	if err != nil {
		j.discard()
		span.SetStatus(codes.Error, "attempt unwound")
		return err
	}

	if err := e.settle(ctx, j, ectx, outcome); err != nil {
		j.discard()
		span.SetStatus(codes.Error, "repayment shortfall")
		return err
	}

	e.commit(ctx, j, outcome)
	span.SetAttributes(attribute.Bool("profitable", outcome.profitable))
	span.SetStatus(codes.Ok, "settled")
	return nil
}

// attemptOutcome is the intermediate result of the swap leg, before
// repayment.
type attemptOutcome struct {
	profitable  bool
	failReason  string
	finalAmount asset.Amount
	profit      asset.Amount
	feeCut      asset.Amount
	ownerCut    asset.Amount
}

// runSwaps executes the two chained swaps inside the journal. Swap-level
// failures (zero quote, slippage guard) resolve the attempt as failed but
// repayable; only internal faults return an error.
func (e *Executor) runSwaps(ctx context.Context, j *journal, ectx domain.ExecutionContext) (attemptOutcome, error) {
	venueA, venueB, err := e.lookupVenues(ectx.VenueA, ectx.VenueB)
	if err != nil {
		return attemptOutcome{}, err
	}

	intermediate, err := e.resolveToken(ectx.IntermediateToken, ectx.Amount.Asset().ChainID())
	if err != nil {
		return attemptOutcome{}, err
	}

	// Swap 1: borrow token -> intermediate token on venue A.
	intermediateAmount, failReason := e.executeSwap(ctx, j, venueA,
		ectx.Amount.Asset(), intermediate, ectx.VenueAFeeTier, ectx.Amount, ectx.Deadline)
	if failReason != "" {
		// No second swap after a dead first leg.
		return attemptOutcome{failReason: "swap1 " + failReason}, nil
	}

	// Swap 2: intermediate token -> borrow token on venue B.
	finalAmount, failReason := e.executeSwap(ctx, j, venueB,
		intermediate, ectx.Amount.Asset(), ectx.VenueBFeeTier, intermediateAmount, ectx.Deadline)
	if failReason != "" {
		return attemptOutcome{failReason: "swap2 " + failReason}, nil
	}

	out := attemptOutcome{finalAmount: finalAmount}

	if gt, _ := finalAmount.GreaterThan(ectx.AmountOwed); gt {
		out.profitable = true
		out.profit = finalAmount.MustSub(ectx.AmountOwed)
		out.feeCut, out.ownerCut = e.currentFees().Split(out.profit)
	} else {
		out.failReason = "round trip below amount owed"
	}

	return out, nil
}

// executeSwap quotes, derives the slippage floor, and routes one swap
// through the venue adapter. A non-empty failReason means the swap did not
// happen and the attempt should settle as failed.
func (e *Executor) executeSwap(ctx context.Context, j *journal, venue VenueAdapter, tokenIn, tokenOut *asset.Asset, feeTier int64, amountIn asset.Amount, deadline time.Time) (asset.Amount, string) {
	expected, err := venue.Quote(ctx, tokenIn.Symbol(), tokenOut.Symbol(), feeTier, amountIn)
	if err != nil || expected.IsZero() {
		// A failed quote means executing blindly. Refuse instead.
		e.log.Warn(ctx, "quote unavailable, swap skipped",
			"venue", venue.ID(),
			"token_in", tokenIn.Symbol(),
			"token_out", tokenOut.Symbol(),
		)
		return asset.Amount{}, "produced zero output"
	}

	minOut := expected.MulBig(big.NewInt(10000 - e.currentSlippage()))
	minOut, _ = minOut.DivBig(bpsDivisor)

	res, err := venue.Swap(ctx, tokenIn.Symbol(), tokenOut.Symbol(), feeTier, amountIn, minOut, deadline)
	if err != nil {
		e.log.Warn(ctx, "swap rejected by venue",
			"venue", venue.ID(),
			"error", err,
		)
		if apperror.IsCode(err, apperror.CodeInsufficientOutput) {
			return asset.Amount{}, "output below slippage floor"
		}
		return asset.Amount{}, "venue error"
	}

	j.addRevert(res.Revert)
	if err := j.debit(amountIn); err != nil {
		// Borrowed funds were just credited; running dry here is a bug.
		panic(err)
	}
	j.credit(res.AmountOut)

	if res.AmountOut.IsZero() {
		return asset.Amount{}, "produced zero output"
	}
	return res.AmountOut, ""
}

// settle distributes profit (if any), records statistics, and repays the
// facility out of the journal. An uncoverable repayment is the one fatal
// error in the whole sequence.
func (e *Executor) settle(ctx context.Context, j *journal, ectx domain.ExecutionContext, out attemptOutcome) error {
	now := time.Now().UTC()

	if out.profitable {
		if err := j.debit(out.profit); err != nil {
			return apperror.New(apperror.CodeInternalError, apperror.WithCause(err),
				apperror.WithContext("profit exceeds journal balance"))
		}
		j.payFee(out.feeCut)
		j.payOwner(out.ownerCut)
		j.stats.RecordSuccess(out.profit, out.feeCut, now)

		j.addEvent(domain.NewEvent(domain.EventProfitDistributed,
			"token", ectx.BorrowToken,
			"profit", out.profit.String(),
			"fee_cut", out.feeCut.String(),
			"owner_cut", out.ownerCut.String(),
		))
	} else {
		j.stats.RecordFailure(now)
		j.addEvent(domain.NewEvent(domain.EventSwapFailed,
			"token", ectx.BorrowToken,
			"reason", out.failReason,
		))
	}

	// Repayment authorization: the facility pulls amountOwed at the end of
	// the atomic unit. If the vault cannot cover it, nothing here survives.
	if err := j.debit(ectx.AmountOwed); err != nil {
		return apperror.New(apperror.CodeRepaymentShortfall,
			apperror.WithCause(err),
			apperror.WithContext("vault cannot cover amount owed "+ectx.AmountOwed.String()))
	}

	j.addEvent(domain.NewEvent(domain.EventArbitrageExecuted,
		"token", ectx.BorrowToken,
		"amount", ectx.Amount.String(),
		"amount_owed", ectx.AmountOwed.String(),
		"profitable", boolString(out.profitable),
	))
	return nil
}

// commit publishes the journal as the new executor state. Reaching
// repayment at all proves the path is healthy, so the circuit breaker
// resets on every committed pass, profitable or not.
func (e *Executor) commit(ctx context.Context, j *journal, out attemptOutcome) {
	e.mu.Lock()
	e.vault = j.vault
	e.ownerOwed = j.ownerOwed
	e.feeOwed = j.feeOwed
	e.stats = j.stats
	e.breaker.Reset()
	e.mu.Unlock()

	outcome := "failed"
	if out.profitable {
		outcome = "success"
		e.metrics.profitUSD.Record(ctx, out.profit.ToFloat64())
	}
	e.metrics.settledTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	for _, event := range j.events {
		e.recorder.Record(ctx, event)
	}
}

func (e *Executor) decodeCallback(amount asset.Amount, data []byte) (domain.ArbitrageRequest, error) {
	var p callbackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.ArbitrageRequest{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithCause(err),
			apperror.WithContext("malformed callback data"))
	}
	if p.BorrowToken != amount.Asset().Symbol() {
		return domain.ArbitrageRequest{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("callback asset does not match request"))
	}
	return domain.ArbitrageRequest{
		BorrowToken:       p.BorrowToken,
		IntermediateToken: p.IntermediateToken,
		Amount:            amount,
		VenueA:            p.VenueA,
		VenueB:            p.VenueB,
		VenueAFeeTier:     p.VenueAFeeTier,
		VenueBFeeTier:     p.VenueBFeeTier,
		Deadline:          p.Deadline,
	}, nil
}

func (e *Executor) lookupVenues(a, b string) (VenueAdapter, VenueAdapter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	venueA, ok := e.venues[a]
	if !ok {
		return nil, nil, apperror.New(apperror.CodeVenueNotApproved,
			apperror.WithContext("venue "+a+" not registered"))
	}
	venueB, ok := e.venues[b]
	if !ok {
		return nil, nil, apperror.New(apperror.CodeVenueNotApproved,
			apperror.WithContext("venue "+b+" not registered"))
	}
	return venueA, venueB, nil
}

func (e *Executor) resolveToken(symbol string, chainID uint64) (*asset.Asset, error) {
	a, ok := e.registry.GetBySymbolAndChain(symbol, chainID)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("unknown token "+symbol))
	}
	return a, nil
}

func (e *Executor) currentSlippage() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slippage
}

func (e *Executor) currentFees() domain.FeeConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fees
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// journal stages every effect of one attempt: vault movements, payout
// accruals, statistics, audit events, and venue-side undo hooks. Either
// commit publishes all of it or discard erases all of it.
type journal struct {
	vault     map[string]asset.Amount
	ownerOwed map[string]asset.Amount
	feeOwed   map[string]asset.Amount
	stats     domain.SwapStatistics
	events    []domain.Event
	reverts   []func()
}

func (e *Executor) newJournal() *journal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &journal{
		vault:     cloneBalances(e.vault),
		ownerOwed: cloneBalances(e.ownerOwed),
		feeOwed:   cloneBalances(e.feeOwed),
		stats:     e.stats,
	}
}

func (j *journal) credit(a asset.Amount) {
	creditInto(j.vault, a)
}

func (j *journal) debit(a asset.Amount) error {
	symbol := a.Asset().Symbol()
	balance, ok := j.vault[symbol]
	if !ok {
		balance = asset.Zero(a.Asset())
	}
	remaining, err := balance.Sub(a)
	if err != nil {
		return apperror.New(apperror.CodeInsufficientFunds,
			apperror.WithCause(err),
			apperror.WithContext("vault balance "+balance.String()+" below "+a.String()))
	}
	j.vault[symbol] = remaining
	return nil
}

func (j *journal) payFee(a asset.Amount) {
	if a.IsZero() {
		return
	}
	creditInto(j.feeOwed, a)
}

func (j *journal) payOwner(a asset.Amount) {
	if a.IsZero() {
		return
	}
	creditInto(j.ownerOwed, a)
}

func (j *journal) addEvent(event domain.Event) {
	j.events = append(j.events, event)
}

func (j *journal) addRevert(fn func()) {
	if fn != nil {
		j.reverts = append(j.reverts, fn)
	}
}

// discard unwinds venue-side mutations in reverse order and drops every
// staged change.
func (j *journal) discard() {
	for i := len(j.reverts) - 1; i >= 0; i-- {
		j.reverts[i]()
	}
	j.reverts = nil
	j.events = nil
}

func creditInto(balances map[string]asset.Amount, a asset.Amount) {
	symbol := a.Asset().Symbol()
	if existing, ok := balances[symbol]; ok {
		balances[symbol] = existing.MustAdd(a)
		return
	}
	balances[symbol] = a
}

func cloneBalances(balances map[string]asset.Amount) map[string]asset.Amount {
	out := make(map[string]asset.Amount, len(balances))
	for k, v := range balances {
		out[k] = v
	}
	return out
}

func validateFees(f domain.FeeConfiguration) error {
	if f.PercentageBps < 0 || f.PercentageBps > config.MaxFeePercentageBps {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithContext("fee percentage out of range"))
	}
	if f.Enabled && f.Recipient == "" {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithContext("fee recipient required when fees are enabled"))
	}
	return nil
}
