// Package app contains the feed service and port definitions for the feed context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	evaldomain "github.com/fd1az/flash-arb/business/evaluation/domain"
	execdomain "github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/business/feed/domain"
)

// CandidateSource delivers scanner observations. Run blocks until the context
// is cancelled or the source is exhausted; the candidates channel closes when
// the source stops for good.
type CandidateSource interface {
	Run(ctx context.Context) error
	Candidates() <-chan domain.Candidate
	Close() error
}

// Evaluator decides whether a directional spread clears the profitability
// band. Satisfied by the evaluation context's service.
type Evaluator interface {
	Evaluate(ctx context.Context, token, buyVenue string, buyPrice decimal.Decimal, sellVenue string, sellPrice decimal.Decimal, notionalUSD decimal.Decimal) *evaldomain.Opportunity
}

// Submitter accepts arbitrage requests for execution. Satisfied by the
// execution context's executor.
type Submitter interface {
	RequestArbitrage(ctx context.Context, req execdomain.ArbitrageRequest) error
}
