package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	evaldomain "github.com/fd1az/flash-arb/business/evaluation/domain"
	execdomain "github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/business/feed/domain"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
	"github.com/fd1az/flash-arb/internal/ratelimit"
)

const meterName = "feed"

// submitDeadline bounds how long a submitted request stays executable.
const submitDeadline = 30 * time.Second

// serviceMetrics holds OTEL metric instruments.
type serviceMetrics struct {
	candidatesTotal metric.Int64Counter
	submittedTotal  metric.Int64Counter
	submitErrors    metric.Int64Counter
	droppedTotal    metric.Int64Counter
}

// Service bridges the scanner to the executor: decode candidates, evaluate
// both directions, rank, submit the best. Submission failures are logged and
// counted, never propagated; a broken candidate must not take the feed down.
type Service struct {
	source    CandidateSource
	evaluator Evaluator
	submitter Submitter
	registry  *asset.Registry
	limiter   *ratelimit.Limiter
	log       logger.LoggerInterface

	defaultNotional decimal.Decimal
	metrics         *serviceMetrics

	// opportunities fans ranked winners out to observers (the TUI). Slow
	// observers drop updates rather than blocking the pipeline.
	opportunities chan *evaldomain.Opportunity
}

// NewService wires the feed pipeline.
func NewService(source CandidateSource, evaluator Evaluator, submitter Submitter, registry *asset.Registry, feedCfg config.FeedConfig, evalCfg config.EvaluationConfig, log logger.LoggerInterface) (*Service, error) {
	s := &Service{
		source:          source,
		evaluator:       evaluator,
		submitter:       submitter,
		registry:        registry,
		limiter:         ratelimit.New(feedCfg.SubmitPerMinute),
		log:             log,
		defaultNotional: decimal.NewFromFloat(evalCfg.NotionalUSD),
		opportunities:   make(chan *evaldomain.Opportunity, 32),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.candidatesTotal, err = meter.Int64Counter(
		"feed_candidates_total",
		metric.WithDescription("Candidates received from the scanner"),
	)
	if err != nil {
		return err
	}

	s.metrics.submittedTotal, err = meter.Int64Counter(
		"feed_submitted_total",
		metric.WithDescription("Opportunities submitted to the executor"),
	)
	if err != nil {
		return err
	}

	s.metrics.submitErrors, err = meter.Int64Counter(
		"feed_submit_errors_total",
		metric.WithDescription("Executor rejections of submitted opportunities"),
	)
	if err != nil {
		return err
	}

	s.metrics.droppedTotal, err = meter.Int64Counter(
		"feed_dropped_total",
		metric.WithDescription("Candidates dropped before submission, by reason"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run consumes the candidate stream until the context is cancelled or the
// source closes.
func (s *Service) Run(ctx context.Context) error {
	go func() {
		if err := s.source.Run(ctx); err != nil {
			s.log.Error(ctx, "candidate source stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return s.source.Close()
		case candidate, ok := <-s.source.Candidates():
			if !ok {
				return nil
			}
			s.process(ctx, candidate)
		}
	}
}

// Opportunities returns the stream of ranked winners, best direction only.
func (s *Service) Opportunities() <-chan *evaldomain.Opportunity {
	return s.opportunities
}

// process evaluates one candidate in both directions and submits the best
// accepted opportunity.
func (s *Service) process(ctx context.Context, c domain.Candidate) {
	s.metrics.candidatesTotal.Add(ctx, 1)

	if err := c.Validate(); err != nil {
		s.drop(ctx, "invalid", "malformed candidate", "error", err)
		return
	}

	notional := c.NotionalUSD
	if notional.IsZero() {
		notional = s.defaultNotional
	}

	var opportunities []*evaldomain.Opportunity
	if opp := s.evaluator.Evaluate(ctx, c.Token, c.VenueX, c.PriceX, c.VenueY, c.PriceY, notional); opp != nil {
		opportunities = append(opportunities, opp)
	}
	if opp := s.evaluator.Evaluate(ctx, c.Token, c.VenueY, c.PriceY, c.VenueX, c.PriceX, notional); opp != nil {
		opportunities = append(opportunities, opp)
	}
	if len(opportunities) == 0 {
		s.drop(ctx, "unprofitable", "candidate below profitability band",
			"token", c.Token, "venue_x", c.VenueX, "venue_y", c.VenueY)
		return
	}

	evaldomain.Rank(opportunities)
	best := opportunities[0]

	select {
	case s.opportunities <- best:
	default:
	}

	req, err := s.buildRequest(c, best, notional)
	if err != nil {
		s.drop(ctx, "unbuildable", "cannot build request from opportunity", "error", err)
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	if err := s.submitter.RequestArbitrage(ctx, req); err != nil {
		s.metrics.submitErrors.Add(ctx, 1)
		s.log.Warn(ctx, "executor rejected opportunity",
			"token", best.Token,
			"buy_venue", best.BuyVenue,
			"sell_venue", best.SellVenue,
			"net_profit_usd", best.NetProfitUSD.StringFixed(2),
			"error", err,
		)
		return
	}

	s.metrics.submittedTotal.Add(ctx, 1)
	s.log.Info(ctx, "opportunity submitted",
		"token", best.Token,
		"buy_venue", best.BuyVenue,
		"sell_venue", best.SellVenue,
		"net_profit_usd", best.NetProfitUSD.StringFixed(2),
	)
}

// buildRequest maps a price-space opportunity onto a token-space request:
// borrow the funding token, swap to the priced token on the buy venue, back
// on the sell venue.
func (s *Service) buildRequest(c domain.Candidate, opp *evaldomain.Opportunity, notional decimal.Decimal) (execdomain.ArbitrageRequest, error) {
	funding, ok := s.registry.GetBySymbolAndChain(c.FundingToken, asset.ChainIDEthereum)
	if !ok {
		return execdomain.ArbitrageRequest{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unknown funding token "+c.FundingToken))
	}

	amount, err := asset.ParseDecimal(funding, notional.Truncate(int32(funding.Decimals())))
	if err != nil {
		return execdomain.ArbitrageRequest{}, err
	}

	return execdomain.ArbitrageRequest{
		BorrowToken:       c.FundingToken,
		IntermediateToken: c.Token,
		Amount:            amount,
		VenueA:            opp.BuyVenue,
		VenueB:            opp.SellVenue,
		VenueAFeeTier:     c.FeeTierFor(opp.BuyVenue),
		VenueBFeeTier:     c.FeeTierFor(opp.SellVenue),
		Deadline:          time.Now().Add(submitDeadline),
	}, nil
}

func (s *Service) drop(ctx context.Context, reason, msg string, args ...any) {
	s.metrics.droppedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
	s.log.Debug(ctx, msg, args...)
}
