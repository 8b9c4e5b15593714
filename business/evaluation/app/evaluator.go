// Package app contains application services and port definitions for the evaluation context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flash-arb/business/evaluation/domain"
	"github.com/fd1az/flash-arb/internal/config"
)

const (
	tracerName = "evaluation"
	meterName  = "evaluation"
)

var (
	hundred    = decimal.NewFromInt(100)
	bpsDivisor = decimal.NewFromInt(10000)
)

// evaluatorMetrics holds OTEL metric instruments.
type evaluatorMetrics struct {
	evaluationsTotal metric.Int64Counter
	accepted         metric.Int64Counter
	rejected         metric.Int64Counter
}

// Evaluator decides whether a candidate spread is worth executing net of all
// costs. It holds no mutable state of its own; the fee schedule is read
// through one snapshot per evaluation.
type Evaluator struct {
	schedule FeeSchedule

	loanPremiumBps   decimal.Decimal
	minProfitUSD     decimal.Decimal
	minProfitPercent decimal.Decimal
	maxProfitPercent decimal.Decimal

	tracer  trace.Tracer
	metrics *evaluatorMetrics
}

// NewEvaluator creates an Evaluator with thresholds from configuration.
func NewEvaluator(schedule FeeSchedule, cfg config.EvaluationConfig) (*Evaluator, error) {
	e := &Evaluator{
		schedule:         schedule,
		loanPremiumBps:   cfg.LoanPremiumBpsDecimal(),
		minProfitUSD:     cfg.MinProfitUSDDecimal(),
		minProfitPercent: cfg.MinProfitPercentDecimal(),
		maxProfitPercent: cfg.MaxProfitPercentDecimal(),
		tracer:           otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &evaluatorMetrics{}

	e.metrics.evaluationsTotal, err = meter.Int64Counter(
		"evaluation_candidates_total",
		metric.WithDescription("Total candidate evaluations"),
	)
	if err != nil {
		return err
	}

	e.metrics.accepted, err = meter.Int64Counter(
		"evaluation_accepted_total",
		metric.WithDescription("Candidates that cleared the profitability band"),
	)
	if err != nil {
		return err
	}

	e.metrics.rejected, err = meter.Int64Counter(
		"evaluation_rejected_total",
		metric.WithDescription("Candidates rejected by the profitability band"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Evaluate computes the net profitability of buying token on buyVenue at
// buyPrice and selling on sellVenue at sellPrice, for the given notional.
// It returns nil when there is no acceptable opportunity. Profitability is
// directional: callers evaluate both directions independently.
//
// Rejection is always the safe answer here. Bad denominators, missing fee
// schedule entries, and spreads outside the profit band all return nil
// rather than an error.
func (e *Evaluator) Evaluate(ctx context.Context, token, buyVenue string, buyPrice decimal.Decimal, sellVenue string, sellPrice decimal.Decimal, notionalUSD decimal.Decimal) *domain.Opportunity {
	ctx, span := e.tracer.Start(ctx, "evaluation.evaluate",
		trace.WithAttributes(
			attribute.String("token", token),
			attribute.String("buy_venue", buyVenue),
			attribute.String("sell_venue", sellVenue),
		),
	)
	defer span.End()

	e.metrics.evaluationsTotal.Add(ctx, 1)

	if buyPrice.Sign() <= 0 || sellPrice.Sign() <= 0 || notionalUSD.Sign() <= 0 {
		return e.reject(ctx, span, "non_positive_input")
	}

	priceDiff := sellPrice.Sub(buyPrice)
	if priceDiff.Sign() <= 0 {
		return e.reject(ctx, span, "wrong_direction")
	}

	// One snapshot for the whole evaluation: both venue lookups must see
	// the same fee schedule version.
	snapshot := e.schedule.Snapshot()
	buyFee, ok := snapshot.FeeRate(buyVenue, token)
	if !ok {
		return e.reject(ctx, span, "missing_fee_schedule")
	}
	sellFee, ok := snapshot.FeeRate(sellVenue, token)
	if !ok {
		return e.reject(ctx, span, "missing_fee_schedule")
	}

	grossProfitPercent := priceDiff.Div(buyPrice).Mul(hundred)
	tradeSizeToken := notionalUSD.Div(buyPrice)
	grossProfitUSD := notionalUSD.Mul(priceDiff).Div(buyPrice)

	fees := domain.FeeBreakdown{
		LoanPremiumUSD:  notionalUSD.Mul(e.loanPremiumBps).Div(bpsDivisor),
		BuyVenueFeeUSD:  buyFee.FeeUSD(notionalUSD),
		SellVenueFeeUSD: sellFee.FeeUSD(notionalUSD.Add(grossProfitUSD)),
	}

	netProfitUSD := grossProfitUSD.Sub(fees.TotalUSD())
	netProfitPercent := netProfitUSD.Div(notionalUSD).Mul(hundred)

	span.SetAttributes(
		attribute.String("net_profit_usd", netProfitUSD.StringFixed(2)),
		attribute.String("net_profit_percent", netProfitPercent.StringFixed(4)),
	)

	if netProfitUSD.LessThan(e.minProfitUSD) {
		return e.reject(ctx, span, "below_min_profit_usd")
	}
	if netProfitPercent.LessThan(e.minProfitPercent) {
		return e.reject(ctx, span, "below_min_profit_percent")
	}
	// Outsized spreads are more likely stale or manipulated data than real
	// opportunity, so the band has a ceiling too.
	if netProfitPercent.GreaterThan(e.maxProfitPercent) {
		return e.reject(ctx, span, "above_max_profit_percent")
	}

	e.metrics.accepted.Add(ctx, 1)

	return &domain.Opportunity{
		Token:              token,
		BuyVenue:           buyVenue,
		SellVenue:          sellVenue,
		BuyPrice:           buyPrice,
		SellPrice:          sellPrice,
		NotionalUSD:        notionalUSD,
		TradeSizeToken:     tradeSizeToken,
		GrossProfitUSD:     grossProfitUSD,
		GrossProfitPercent: grossProfitPercent,
		Fees:               fees,
		NetProfitUSD:       netProfitUSD,
		NetProfitPercent:   netProfitPercent,
		Timestamp:          time.Now().UTC(),
	}
}

func (e *Evaluator) reject(ctx context.Context, span trace.Span, reason string) *domain.Opportunity {
	e.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	span.SetAttributes(attribute.String("rejection", reason))
	return nil
}
