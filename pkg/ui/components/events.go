package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// EventRow is one executor state transition in the log.
type EventRow struct {
	Timestamp  string
	Type       string
	Attributes map[string]string
}

// EventLogComponent renders the rolling executor event log.
type EventLogComponent struct {
	rows    []EventRow
	maxRows int
}

// NewEventLogComponent creates a new event log component.
func NewEventLogComponent(maxRows int) *EventLogComponent {
	return &EventLogComponent{maxRows: maxRows}
}

// Add prepends a new event.
func (e *EventLogComponent) Add(row EventRow) {
	e.rows = append([]EventRow{row}, e.rows...)
	if len(e.rows) > e.maxRows {
		e.rows = e.rows[:e.maxRows]
	}
}

// Clear drops all events.
func (e *EventLogComponent) Clear() {
	e.rows = nil
}

// View renders the event log.
func (e *EventLogComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	typeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	dangerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("EVENTS"))
	sb.WriteString("\n")

	if len(e.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  No state transitions yet..."))
		return sb.String()
	}

	for _, row := range e.rows {
		style := typeStyle
		if strings.Contains(row.Type, "failed") || strings.Contains(row.Type, "rejected") {
			style = dangerStyle
		}
		sb.WriteString(mutedStyle.Render("  " + row.Timestamp + " "))
		sb.WriteString(style.Render(row.Type))
		if attrs := formatAttributes(row.Attributes); attrs != "" {
			sb.WriteString(mutedStyle.Render(" " + attrs))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, attrs[k]))
	}
	return strings.Join(parts, " ")
}
