// Package ws provides the websocket candidate source for the feed context.
package ws

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flash-arb/business/feed/app"
	"github.com/fd1az/flash-arb/business/feed/domain"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/logger"
	"github.com/fd1az/flash-arb/internal/wsconn"
)

// Ensure Source implements CandidateSource.
var _ app.CandidateSource = (*Source)(nil)

// Source reads scanner candidates as JSON frames over a reconnecting
// websocket. Undecodable frames are counted and skipped.
type Source struct {
	client *wsconn.Client
	log    logger.LoggerInterface

	out          chan domain.Candidate
	decodeErrors metric.Int64Counter
}

// New builds the source from feed configuration.
func New(cfg config.FeedConfig, log logger.LoggerInterface) (*Source, error) {
	wsCfg := wsconn.DefaultConfig(cfg.WebSocketURL)
	if cfg.ReconnectBackoff > 0 {
		wsCfg.InitialBackoff = cfg.ReconnectBackoff
	}
	if cfg.MaxReconnectBackoff > 0 {
		wsCfg.MaxBackoff = cfg.MaxReconnectBackoff
	}

	decodeErrors, err := otel.Meter("feed").Int64Counter(
		"feed_decode_errors_total",
		metric.WithDescription("Scanner frames that failed to decode"),
	)
	if err != nil {
		return nil, err
	}

	return &Source{
		client:       wsconn.New(wsCfg),
		log:          log,
		out:          make(chan domain.Candidate, 64),
		decodeErrors: decodeErrors,
	}, nil
}

// Run connects and decodes frames until the connection stops for good.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.out)

	if err := s.client.Connect(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-s.client.Messages():
			if !ok {
				return nil
			}
			var candidate domain.Candidate
			if err := json.Unmarshal(frame, &candidate); err != nil {
				s.decodeErrors.Add(ctx, 1)
				s.log.Warn(ctx, "dropping undecodable scanner frame", "error", err)
				continue
			}
			select {
			case s.out <- candidate:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Candidates returns the decoded candidate stream.
func (s *Source) Candidates() <-chan domain.Candidate {
	return s.out
}

// Close shuts the websocket down.
func (s *Source) Close() error {
	return s.client.Close()
}

// State exposes the underlying connection state for health reporting.
func (s *Source) State() wsconn.State {
	return s.client.State()
}
