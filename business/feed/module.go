// Package feed implements the scanner-facing opportunity feed bounded context.
package feed

import (
	"context"

	evaluationDI "github.com/fd1az/flash-arb/business/evaluation/di"
	executionDI "github.com/fd1az/flash-arb/business/execution/di"
	"github.com/fd1az/flash-arb/business/feed/app"
	feedDI "github.com/fd1az/flash-arb/business/feed/di"
	"github.com/fd1az/flash-arb/business/feed/infra/rest"
	"github.com/fd1az/flash-arb/business/feed/infra/ws"
	"github.com/fd1az/flash-arb/internal/asset"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/di"
	"github.com/fd1az/flash-arb/internal/logger"
	"github.com/fd1az/flash-arb/internal/monolith"
)

// Module implements the feed bounded context.
type Module struct{}

// RegisterServices registers all feed services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register candidate source - private dependency
	di.RegisterToken(c, feedDI.CandidateSource, func(sr di.ServiceRegistry) app.CandidateSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		source, err := buildSource(cfg.Feed, log)
		if err != nil {
			panic("failed to create candidate source: " + err.Error())
		}
		return source
	})

	// Register feed service (public - the TUI reads its counters via metrics)
	di.RegisterToken(c, feedDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		service, err := app.NewService(
			feedDI.GetCandidateSource(sr),
			evaluationDI.GetEvaluator(sr),
			executionDI.GetExecutor(sr),
			registry,
			cfg.Feed,
			cfg.Evaluation,
			log,
		)
		if err != nil {
			panic("failed to create feed service: " + err.Error())
		}
		return service
	})

	return nil
}

func buildSource(cfg config.FeedConfig, log logger.LoggerInterface) (app.CandidateSource, error) {
	if cfg.Source == "rest" {
		return rest.New(cfg, log)
	}
	return ws.New(cfg, log)
}

// Startup launches the feed pipeline when enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if !cfg.Feed.Enabled {
		log.Info(ctx, "feed module disabled")
		return nil
	}

	service := feedDI.GetService(mono.Services())
	go func() {
		if err := service.Run(ctx); err != nil {
			log.Error(ctx, "feed pipeline stopped", "error", err)
		}
	}()

	log.Info(ctx, "feed module started",
		"source", cfg.Feed.Source,
		"submit_per_minute", cfg.Feed.SubmitPerMinute,
	)
	return nil
}
