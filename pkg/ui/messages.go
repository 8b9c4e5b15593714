package ui

import (
	evaldomain "github.com/fd1az/flash-arb/business/evaluation/domain"
	execdomain "github.com/fd1az/flash-arb/business/execution/domain"
)

// Message types for TUI updates

// EventMsg is sent for every executor state transition.
type EventMsg struct {
	Event execdomain.Event
}

// StatsMsg carries a periodic executor state poll.
type StatsMsg struct {
	Stats   execdomain.SwapStatistics
	Breaker execdomain.CircuitBreakerState
	Health  execdomain.HealthStatus
	Paused  bool
}

// OpportunityMsg is sent when the evaluator accepts a candidate.
type OpportunityMsg struct {
	Opportunity *evaldomain.Opportunity
}

// ErrorMsg is sent when a background component fails.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
