package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Dashboard panel indices.
const (
	panelQueue = iota
	panelPending
	panelEvents
	panelCount
)

// maxDashboardEvents caps the events panel.
const maxDashboardEvents = 8

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	stateCounts map[models.WorkflowState]int
	pending     []pendingSnapshot
	events      []eventSnapshot

	// State.
	loading bool
	err     error
}

type pendingSnapshot struct {
	id      string
	skill   string
	update  string
	expires string
}

type eventSnapshot struct {
	level   string
	message string
	time    string
}

// dashboardDataMsg carries loaded data back to the model.
type dashboardDataMsg struct {
	stateCounts map[models.WorkflowState]int
	pending     []pendingSnapshot
	events      []eventSnapshot
	err         error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	levelWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	levelErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelQueue,
		loading:     true,
		stateCounts: make(map[models.WorkflowState]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashboardData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashboardDataMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.stateCounts = msg.stateCounts
		m.pending = msg.pending
		m.events = msg.events
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" skillsync Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	queuePanel := m.renderQueuePanel()
	pendingPanel := m.renderPendingPanel()
	eventsPanel := m.renderEventsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, colWidth-4)
		pendingPanel = m.applyPanelStyle(panelPending, pendingPanel, colWidth-4)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, queuePanel, pendingPanel, eventsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, panelWidth)
		pendingPanel = m.applyPanelStyle(panelPending, pendingPanel, panelWidth)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, queuePanel, pendingPanel, eventsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Queue"))
	b.WriteString("\n")

	total := 0
	for _, state := range models.WorkflowStates {
		count := m.stateCounts[state]
		if count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-18s %d", state, count)
		b.WriteString(styleForState(state).Render(label))
		b.WriteString("\n")
		total += count
	}
	if total == 0 {
		b.WriteString("  Queue is empty.")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))
	return b.String()
}

func (m dashboardModel) renderPendingPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Pending approval"))
	b.WriteString("\n")

	if len(m.pending) == 0 {
		b.WriteString("  Nothing waiting.")
		return b.String()
	}
	for _, p := range m.pending {
		b.WriteString(fmt.Sprintf("  %s  %s/%s", shortID(p.id), p.skill, p.update))
		if p.expires != "" {
			b.WriteString(fmt.Sprintf("  (expires %s)", p.expires))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m dashboardModel) renderEventsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent events"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString("  No events recorded.")
		return b.String()
	}
	for _, e := range m.events {
		line := fmt.Sprintf("  %s %s", e.time, e.message)
		switch e.level {
		case observability.LevelWarn:
			line = levelWarn.Render(line)
		case observability.LevelError:
			line = levelErr.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func loadDashboardData() tea.Msg {
	result := dashboardDataMsg{
		stateCounts: make(map[models.WorkflowState]int),
	}

	if Queue == nil {
		result.err = fmt.Errorf("queue not initialized")
		return result
	}

	for _, item := range Queue.List() {
		result.stateCounts[item.State]++
		if item.State != models.StatePendingApproval {
			continue
		}
		p := pendingSnapshot{
			id:     item.ID,
			skill:  item.Update.SkillID,
			update: item.Update.Name,
		}
		if item.Approval != nil && item.Approval.ExpiresAt != nil {
			p.expires = item.Approval.ExpiresAt.Format("15:04")
		}
		result.pending = append(result.pending, p)
	}

	if EventLog != nil {
		since := time.Now().Add(-24 * time.Hour)
		events, err := EventLog.Read(observability.EventFilter{Since: &since})
		if err == nil {
			if len(events) > maxDashboardEvents {
				events = events[len(events)-maxDashboardEvents:]
			}
			for _, e := range events {
				result.events = append(result.events, eventSnapshot{
					level:   e.Level,
					message: e.Message,
					time:    e.Time.Format("15:04:05"),
				})
			}
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard for the update workflow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
