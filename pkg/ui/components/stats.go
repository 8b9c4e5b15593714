// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Stats holds executor statistics for display.
type Stats struct {
	TotalAttempts   uint64
	SuccessfulSwaps uint64
	FailedSwaps     uint64

	CumulativeProfit decimal.Decimal
	CumulativeFees   decimal.Decimal
	PeakProfit       decimal.Decimal
	PeakProfitToken  string

	ConsecutiveFailures uint32
	MaxAllowedFailures  uint32
}

// StatsComponent renders executor statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the displayed statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	dangerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	successRate := float64(0)
	if s.stats.TotalAttempts > 0 {
		successRate = float64(s.stats.SuccessfulSwaps) / float64(s.stats.TotalAttempts) * 100
	}

	breakerDisplay := valueStyle.Render(fmt.Sprintf("%d/%d",
		s.stats.ConsecutiveFailures, s.stats.MaxAllowedFailures))
	if s.stats.ConsecutiveFailures >= s.stats.MaxAllowedFailures && s.stats.MaxAllowedFailures > 0 {
		breakerDisplay = dangerStyle.Render(fmt.Sprintf("%d/%d OPEN",
			s.stats.ConsecutiveFailures, s.stats.MaxAllowedFailures))
	}

	peak := "-"
	if !s.stats.PeakProfit.IsZero() {
		peak = fmt.Sprintf("%s %s", s.stats.PeakProfit.StringFixed(2), s.stats.PeakProfitToken)
	}

	return headerStyle.Render("EXECUTOR") + "\n" +
		fmt.Sprintf("Attempts: %s  │  Successful: %s (%.1f%%)  │  Failed: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.TotalAttempts)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.SuccessfulSwaps)),
			successRate,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.FailedSwaps)),
		) +
		fmt.Sprintf("Profit: %s  │  Fees: %s  │  Peak: %s\n",
			valueStyle.Render(s.stats.CumulativeProfit.StringFixed(2)),
			valueStyle.Render(s.stats.CumulativeFees.StringFixed(2)),
			valueStyle.Render(peak),
		) +
		mutedStyle.Render("Breaker: ") + breakerDisplay
}
