package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(80)

	progressStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(1, 2).
			Width(80)

	// Status styles
	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	inProgressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	// Event styles
	infoStyle = lipgloss.NewStyle()

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	logErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// DisplayHeader prints a boxed one-line header.
func DisplayHeader(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

// consoleProgress prints every event as it arrives and keeps analyst
// status for the final progress panel.
type consoleProgress struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	buf   *message.MessageBuffer
}

func newConsoleProgress(out io.Writer, quiet bool) *consoleProgress {
	return &consoleProgress{out: out, quiet: quiet, buf: message.NewMessageBuffer(200)}
}

func (c *consoleProgress) Emit(event models.LogEvent) {
	c.buf.Emit(event)
	if c.quiet && event.Level == models.LevelInfo {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, formatEvent(event))
}

func (c *consoleProgress) UpdateAgentStatus(agent, status string) {
	c.buf.UpdateAgentStatus(agent, status)
}

func formatEvent(e models.LogEvent) string {
	var style lipgloss.Style
	var icon string
	switch e.Level {
	case models.LevelSuccess:
		style, icon = successStyle, "✓"
	case models.LevelWarning:
		style, icon = warningStyle, "!"
	case models.LevelError:
		style, icon = logErrorStyle, "✗"
	default:
		style, icon = infoStyle, "·"
	}
	return style.Render(fmt.Sprintf("[%s] %s %s", e.Clock(), icon, e.Message))
}

// DisplayProgressPanel shows the status of every analyst.
func DisplayProgressPanel(w io.Writer, buf *message.MessageBuffer) {
	var content strings.Builder
	content.WriteString("Analyst Progress\n\n")

	content.WriteString("Analyst Team:\n")
	content.WriteString(formatAgentStatus("  Fundamental Analyst", buf.AgentStatus(consts.Agent_FundamentalAnalyst)))
	content.WriteString(formatAgentStatus("  Technical Analyst", buf.AgentStatus(consts.Agent_TechnicalAnalyst)))
	content.WriteString(formatAgentStatus("  Valuation Analyst", buf.AgentStatus(consts.Agent_ValuationAnalyst)))
	content.WriteString("\nSynthesis:\n")
	content.WriteString(formatAgentStatus("  Summary Analyst", buf.AgentStatus(consts.Agent_SummaryAnalyst)))
	content.WriteString(formatAgentStatus("  Investment Advisor", buf.AgentStatus(consts.Agent_InvestmentAdvisor)))

	fmt.Fprintln(w, progressStyle.Render(strings.TrimRight(content.String(), "\n")))
}

func formatAgentStatus(name, status string) string {
	var style lipgloss.Style
	var icon string
	switch status {
	case consts.State_InProgress:
		style, icon = inProgressStyle, "⟳"
	case consts.State_Completed:
		style, icon = completedStyle, "✓"
	case consts.State_Failed:
		style, icon = errorStyle, "✗"
	default:
		style, icon = pendingStyle, "○"
	}
	return fmt.Sprintf("%s %s\n", style.Render(icon), style.Render(fmt.Sprintf("%-22s %s", name, status)))
}

// truncateString cuts s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
