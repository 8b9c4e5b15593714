package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/circuitbreaker"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"
)

// Ensure Venue implements VenueAdapter.
var _ app.VenueAdapter = (*Venue)(nil)

// venueMetrics holds OTEL metric instruments.
type venueMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Venue quotes live Uniswap V3 pools through the QuoterV2 contract and
// settles swaps at the quoted amount. It holds no reserves of its own, so
// reverting a swap is a no-op. RPC calls go through a circuit breaker; a
// tripped breaker degrades to zero-output quotes instead of failing the
// attempt.
type Venue struct {
	id        string
	client    *ethclient.Client
	quoter    common.Address
	quoterABI abi.ABI
	registry  *asset.Registry
	log       logger.LoggerInterface
	cb        *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *venueMetrics
}

// NewVenue creates the live-quote venue adapter.
func NewVenue(id string, client *ethclient.Client, cfg config.UniswapConfig, registry *asset.Registry, log logger.LoggerInterface) (*Venue, error) {
	parsedABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}

	v := &Venue{
		id:        id,
		client:    client,
		quoter:    cfg.QuoterAddressHex(),
		quoterABI: parsedABI,
		registry:  registry,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("uniswap-quoter")
	v.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := v.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return v, nil
}

func (v *Venue) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	v.metrics = &venueMetrics{}

	v.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	v.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	v.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// ID returns the venue identifier.
func (v *Venue) ID() string {
	return v.id
}

// Quote calls QuoterV2.quoteExactInputSingle for the pair at the given fee
// tier. Chain failures degrade to a zero output so the executor refuses the
// swap instead of executing blindly.
func (v *Venue) Quote(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn asset.Amount) (asset.Amount, error) {
	ctx, span := v.tracer.Start(ctx, "uniswap.quote",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn),
			attribute.String("token_out", tokenOut),
			attribute.Int64("fee_tier", feeTier),
		),
	)
	defer span.End()

	start := time.Now()
	v.metrics.quotesTotal.Add(ctx, 1)

	outAsset, err := v.resolveToken(tokenOut)
	if err != nil {
		return asset.Amount{}, err
	}
	inAsset, err := v.resolveToken(tokenIn)
	if err != nil {
		return asset.Amount{}, err
	}

	result, err := v.quoteExactInputSingle(ctx, inAsset, outAsset, feeTier, amountIn)

	v.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		v.metrics.quoteErrors.Add(ctx, 1)
		v.log.Warn(ctx, "on-chain quote failed",
			"token_in", tokenIn,
			"token_out", tokenOut,
			"error", err,
		)
		return asset.Zero(outAsset), nil
	}

	span.SetAttributes(attribute.String("amount_out", result.AmountOut.String()))
	return asset.NewAmount(outAsset, result.AmountOut), nil
}

// Swap settles at the live quote: there is no venue-side state to mutate,
// so the result reverts with a no-op. The quote is re-taken at execution
// time; the minAmountOut floor still applies to it.
func (v *Venue) Swap(ctx context.Context, tokenIn, tokenOut string, feeTier int64, amountIn, minAmountOut asset.Amount, deadline time.Time) (app.SwapResult, error) {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return app.SwapResult{}, apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext("swap deadline passed"))
	}

	out, err := v.Quote(ctx, tokenIn, tokenOut, feeTier, amountIn)
	if err != nil {
		return app.SwapResult{}, err
	}
	if out.IsZero() {
		return app.SwapResult{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext("no executable quote for "+tokenIn+"/"+tokenOut))
	}

	if lt, _ := out.LessThan(minAmountOut); lt {
		return app.SwapResult{}, apperror.New(apperror.CodeInsufficientOutput,
			apperror.WithContext("quoted output below floor"))
	}

	return app.SwapResult{
		AmountOut: out,
		Revert:    func() {},
	}, nil
}

func (v *Venue) quoteExactInputSingle(ctx context.Context, tokenIn, tokenOut *asset.Asset, feeTier int64, amountIn asset.Amount) (*QuoteResult, error) {
	if !tokenIn.ID().IsToken() {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext(tokenIn.Symbol()+" is not an ERC20 token"))
	}
	if !tokenOut.ID().IsToken() {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext(tokenOut.Symbol()+" is not an ERC20 token"))
	}

	callData, err := v.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn.ID().Address(),
		TokenOut:          tokenOut.ID().Address(),
		AmountIn:          amountIn.Raw(),
		Fee:               big.NewInt(feeTier),
		SqrtPriceLimitX96: big.NewInt(0), // No price limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := v.cb.Execute(func() ([]byte, error) {
		return v.client.CallContract(ctx, ethereum.CallMsg{
			To:   &v.quoter,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := v.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

func (v *Venue) resolveToken(symbol string) (*asset.Asset, error) {
	a, ok := v.registry.GetBySymbolAndChain(symbol, asset.ChainIDEthereum)
	if !ok {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext("unknown token "+symbol))
	}
	return a, nil
}
