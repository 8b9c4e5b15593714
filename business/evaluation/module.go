// Package evaluation implements the fee and profitability calculator bounded context.
package evaluation

import (
	"context"

	"github.com/fd1az/flash-arb/business/evaluation/app"
	evaluationDI "github.com/fd1az/flash-arb/business/evaluation/di"
	"github.com/fd1az/flash-arb/business/evaluation/infra"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/di"
	"github.com/fd1az/flash-arb/internal/monolith"
)

// Module implements the evaluation bounded context.
type Module struct{}

// RegisterServices registers all evaluation services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register FeeSchedule (config-backed) - private dependency
	di.RegisterToken(c, evaluationDI.FeeSchedule, func(sr di.ServiceRegistry) app.FeeSchedule {
		cfg := sr.Get("config").(*config.Config)
		return infra.NewConfigSchedule(cfg.Venues)
	})

	// Register Evaluator (public - exposed to other modules)
	di.RegisterToken(c, evaluationDI.Evaluator, func(sr di.ServiceRegistry) *app.Evaluator {
		cfg := sr.Get("config").(*config.Config)
		schedule := evaluationDI.GetFeeSchedule(sr)

		evaluator, err := app.NewEvaluator(schedule, cfg.Evaluation)
		if err != nil {
			panic("failed to create evaluator: " + err.Error())
		}
		return evaluator
	})

	return nil
}

// Startup initializes the evaluation module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "evaluation module started")
	return nil
}
