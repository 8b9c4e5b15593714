// Package execution implements the flash-loan arbitrage executor bounded context.
package execution

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flash-arb/business/execution/app"
	executionDI "github.com/fd1az/flash-arb/business/execution/di"
	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/business/execution/infra/events"
	"github.com/fd1az/flash-arb/business/execution/infra/lender"
	"github.com/fd1az/flash-arb/business/execution/infra/uniswap"
	"github.com/fd1az/flash-arb/business/execution/infra/venue"
	"github.com/fd1az/flash-arb/internal/apperror"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/di"
	"github.com/fd1az/flash-arb/internal/logger"
	"github.com/fd1az/flash-arb/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register event recorder (public - the TUI consumes its stream)
	di.RegisterToken(c, executionDI.Recorder, func(sr di.ServiceRegistry) *events.Recorder {
		log := sr.Get("logger").(logger.LoggerInterface)
		return events.NewRecorder(log)
	})

	// Register loan facility - private dependency
	di.RegisterToken(c, executionDI.LoanFacility, func(sr di.ServiceRegistry) app.LoanFacility {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		facility, err := lender.New(cfg.Lender, registry, log)
		if err != nil {
			panic("failed to create loan facility: " + err.Error())
		}
		return facility
	})

	// Register venue adapters - private dependency
	di.RegisterToken(c, executionDI.VenueAdapters, func(sr di.ServiceRegistry) []app.VenueAdapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		adapters := make([]app.VenueAdapter, 0, len(cfg.Venues))
		for _, vc := range cfg.Venues {
			adapter, err := buildVenue(sr, vc, cfg, registry, log)
			if err != nil {
				panic("failed to create venue " + vc.ID + ": " + err.Error())
			}
			adapters = append(adapters, adapter)
		}
		return adapters
	})

	// Register Executor (public - exposed to other modules)
	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		params := app.ExecutorParams{
			Owner:                  cfg.Executor.Owner,
			SlippageToleranceBps:   cfg.Executor.SlippageToleranceBps,
			MaxConsecutiveFailures: cfg.Executor.MaxConsecutiveFailures,
			Fees: domain.FeeConfiguration{
				PercentageBps: cfg.Executor.FeePercentageBps,
				Recipient:     cfg.Executor.FeeRecipient,
				Enabled:       cfg.Executor.FeesEnabled,
			},
			WhitelistedTokens: cfg.Executor.WhitelistedTokens,
		}

		executor, err := app.NewExecutor(params,
			executionDI.GetLoanFacility(sr),
			executionDI.GetVenueAdapters(sr),
			registry,
			executionDI.GetRecorder(sr),
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	return nil
}

// buildVenue constructs the adapter matching the configured venue kind.
// A concentrated venue with no seeded pools runs against live Uniswap
// quotes when the on-chain quote source is enabled.
func buildVenue(sr di.ServiceRegistry, vc config.VenueConfig, cfg *config.Config, registry *asset.Registry, log logger.LoggerInterface) (app.VenueAdapter, error) {
	switch vc.Kind {
	case "constant_product":
		return venue.NewConstantProduct(vc, registry, log)
	case "concentrated":
		if len(vc.Pools) == 0 && cfg.Uniswap.Enabled {
			client := sr.Get("ethClient").(*ethclient.Client)
			return uniswap.NewVenue(vc.ID, client, cfg.Uniswap, registry, log)
		}
		return venue.NewConcentrated(vc, registry, log)
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unknown venue kind "+vc.Kind))
	}
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	executor := executionDI.GetExecutor(mono.Services())
	health := executor.HealthCheck()

	log.Info(ctx, "execution module started",
		"healthy", health.Healthy,
		"status", health.Status,
		"tokens", health.TokenCount,
		"venues", health.VenueCount,
	)
	return nil
}
