// Package di contains dependency injection tokens for the evaluation context.
package di

import (
	"github.com/fd1az/flash-arb/business/evaluation/app"
	"github.com/fd1az/flash-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Evaluator = di.NewToken[*app.Evaluator]("evaluation.Evaluator")
)

// Private dependency tokens - internal to evaluation module
var (
	FeeSchedule = di.NewToken[app.FeeSchedule]("evaluation:feeSchedule")
)

// Helper functions for type-safe access
func GetEvaluator(c di.ServiceRegistry) *app.Evaluator {
	return di.GetToken(c, Evaluator)
}

func GetFeeSchedule(c di.ServiceRegistry) app.FeeSchedule {
	return di.GetToken(c, FeeSchedule)
}
