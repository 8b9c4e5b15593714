package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	evaldomain "github.com/fd1az/flash-arb/business/evaluation/domain"
	execapp "github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/business/execution/infra/events"
	"github.com/fd1az/flash-arb/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	stats         *components.StatsComponent
	eventLog      *components.EventLogComponent
	opportunities *components.OpportunitiesComponent
	keys          KeyMap

	phase        Phase
	welcomeStart time.Time

	ready    bool
	quitting bool
	width    int
	height   int

	healthy      bool
	healthStatus string
	paused       bool
	breakerOpen  bool

	lastUpdate time.Time
	errors     []ErrorEntry
	logs       []string
}

// New creates a new TUI model.
func New() Model {
	return Model{
		stats:         components.NewStatsComponent(),
		eventLog:      components.NewEventLogComponent(12),
		opportunities: components.NewOpportunitiesComponent(25),
		keys:          DefaultKeyMap(),
		phase:         PhaseWelcome,
		welcomeStart:  time.Now(),
		healthStatus:  "starting",
		errors:        make([]ErrorEntry, 0, 3),
		logs:          make([]string, 0, 5),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to the dashboard.
		if m.phase == PhaseWelcome {
			m.phase = PhaseDashboard
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.ClearOpps):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.ClearEvents):
			m.eventLog.Clear()
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseDashboard
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case EventMsg:
		m.eventLog.Add(components.EventRow{
			Timestamp:  msg.Event.Timestamp.Format("15:04:05"),
			Type:       string(msg.Event.Type),
			Attributes: msg.Event.Attributes,
		})
		m.lastUpdate = time.Now()

	case StatsMsg:
		m.stats.Update(components.Stats{
			TotalAttempts:       msg.Stats.TotalAttempts,
			SuccessfulSwaps:     msg.Stats.SuccessfulSwaps,
			FailedSwaps:         msg.Stats.FailedSwaps,
			CumulativeProfit:    msg.Stats.CumulativeProfit,
			CumulativeFees:      msg.Stats.CumulativeFeesCollected,
			PeakProfit:          msg.Stats.PeakProfit,
			PeakProfitToken:     msg.Stats.PeakProfitToken,
			ConsecutiveFailures: msg.Breaker.ConsecutiveFailures,
			MaxAllowedFailures:  msg.Breaker.MaxAllowedFailures,
		})
		m.healthy = msg.Health.Healthy
		m.healthStatus = msg.Health.Status
		m.paused = msg.Paused
		m.breakerOpen = msg.Breaker.Tripped()
		m.lastUpdate = time.Now()

	case OpportunityMsg:
		if msg.Opportunity != nil {
			opp := msg.Opportunity
			profitable := opp.NetProfitUSD.IsPositive()
			status := "Not profitable"
			if profitable {
				status = "PROFITABLE"
			}
			m.opportunities.Add(components.OpportunityRow{
				Time:       opp.Timestamp.Format("15:04:05"),
				Token:      opp.Token,
				Direction:  opp.BuyVenue + " → " + opp.SellVenue,
				SpreadPct:  opp.GrossProfitPercent,
				NetProfit:  opp.NetProfitUSD,
				Status:     status,
				Profitable: profitable,
			})
			m.lastUpdate = time.Now()
		}

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	title := TitleStyle.Render(" ⚡ Flash-Loan Arbitrage Executor ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.stats.View() + "\n\n" + m.eventLog.View()
	rightCol := m.opportunities.View()

	if m.width > 120 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("q: quit • c: clear opportunities • e: clear events"))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	goldStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWarning)

	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	greenStyle := lipgloss.NewStyle().Foreground(ColorProfit)

	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	sb.WriteString("\n\n\n\n")

	logo := `
   ███████╗██╗      █████╗ ███████╗██╗  ██╗     █████╗ ██████╗ ██████╗
   ██╔════╝██║     ██╔══██╗██╔════╝██║  ██║    ██╔══██╗██╔══██╗██╔══██╗
   █████╗  ██║     ███████║███████╗███████║    ███████║██████╔╝██████╔╝
   ██╔══╝  ██║     ██╔══██║╚════██║██╔══██║    ██╔══██║██╔══██╗██╔══██╗
   ██║     ███████╗██║  ██║███████║██║  ██║    ██║  ██║██║  ██║██████╔╝
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	subtitle := "          F L A S H - L O A N   A R B I T R A G E"
	sb.WriteString(mutedStyle.Render(subtitle))
	sb.WriteString("\n\n\n")

	tagline := "              💰  Borrow, swap, repay, profit  💰"
	sb.WriteString(goldStyle.Render(tagline))
	sb.WriteString("\n\n\n")

	loading := fmt.Sprintf("                  Initializing%s", dots)
	sb.WriteString(greenStyle.Render(loading))
	sb.WriteString("\n\n")

	hint := "            Press any key to skip, or wait..."
	sb.WriteString(mutedStyle.Render(hint))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	switch {
	case m.paused:
		parts = append(parts, StatusDegraded.Render("⏸ PAUSED"))
	case m.breakerOpen:
		parts = append(parts, StatusDown.Render("⛔ BREAKER OPEN"))
	case m.healthy:
		parts = append(parts, StatusHealthy.Render("● "+m.healthStatus))
	default:
		parts = append(parts, StatusDegraded.Render("○ "+m.healthStatus))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	if len(m.logs) > 0 {
		parts = append(parts, MutedValue.Render(m.logs[len(m.logs)-1]))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. This is set by main.go.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

// Watch bridges executor state into the TUI: every audit event becomes an
// EventMsg, and a periodic poll refreshes statistics, breaker state, and
// health. Returns when ctx is cancelled.
func Watch(ctx context.Context, executor *execapp.Executor, recorder *events.Recorder) {
	sub := recorder.Subscribe()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub:
			Send(EventMsg{Event: event})
		case <-ticker.C:
			Send(StatsMsg{
				Stats:   executor.Statistics(),
				Breaker: executor.Breaker(),
				Health:  executor.HealthCheck(),
				Paused:  executor.IsPaused(),
			})
		}
	}
}

// WatchOpportunities forwards ranked feed winners into the TUI. Returns when
// ctx is cancelled or the stream closes.
func WatchOpportunities(ctx context.Context, opps <-chan *evaldomain.Opportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-opps:
			if !ok {
				return
			}
			Send(OpportunityMsg{Opportunity: opp})
		}
	}
}
