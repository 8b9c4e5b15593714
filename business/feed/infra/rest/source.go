// Package rest provides a polling REST candidate source for the feed context.
package rest

import (
	"context"
	"time"

	"github.com/fd1az/flash-arb/business/feed/app"
	"github.com/fd1az/flash-arb/business/feed/domain"
	"github.com/fd1az/flash-arb/internal/config"
	"github.com/fd1az/flash-arb/internal/httpclient"
	"github.com/fd1az/flash-arb/internal/logger"
)

// Ensure Source implements CandidateSource.
var _ app.CandidateSource = (*Source)(nil)

const defaultPollInterval = 5 * time.Second

// Source polls a scanner REST endpoint returning a JSON array of candidates.
// Failed polls are logged and retried on the next tick.
type Source struct {
	client   *httpclient.Client
	interval time.Duration
	log      logger.LoggerInterface

	out  chan domain.Candidate
	done chan struct{}
}

// New builds the source from feed configuration.
func New(cfg config.FeedConfig, log logger.LoggerInterface) (*Source, error) {
	client, err := httpclient.New(
		httpclient.WithProviderName("scanner"),
		httpclient.WithBaseURL(cfg.RESTURL),
	)
	if err != nil {
		return nil, err
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Source{
		client:   client,
		interval: interval,
		log:      log,
		out:      make(chan domain.Candidate, 64),
		done:     make(chan struct{}),
	}, nil
}

// Run polls until the context is cancelled or Close is called.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Source) poll(ctx context.Context) {
	var candidates []domain.Candidate
	if err := s.client.GetJSON(ctx, "", &candidates); err != nil {
		s.log.Warn(ctx, "scanner poll failed", "error", err)
		return
	}

	for _, candidate := range candidates {
		select {
		case s.out <- candidate:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Candidates returns the polled candidate stream.
func (s *Source) Candidates() <-chan domain.Candidate {
	return s.out
}

// Close stops the polling loop.
func (s *Source) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}
