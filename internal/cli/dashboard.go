package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// Dashboard panel indices.
const (
	panelLists = iota
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	listCounts  map[models.TaskStatus]int
	progress    int
	stats       models.Stats
	motivation  string
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	loading bool
	err     error
}

type metricsSnapshot struct {
	tasksCreated   int
	tasksSorted    int
	urgentSorted   int
	tasksCompleted int
	abandonRate    float64
	eventCount     int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	listCounts map[models.TaskStatus]int
	progress   int
	stats      models.Stats
	motivation string
	metrics    *metricsSnapshot
	alerts     []alertSnapshot
	err        error
}

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

	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.StatusToday:     lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		models.StatusCalendar:  lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.StatusInbox:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		models.StatusDelegated: lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		models.StatusProject:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		models.StatusDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelLists,
		loading:     true,
		listCounts:  make(map[models.TaskStatus]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
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
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.listCounts = msg.listCounts
		m.progress = msg.progress
		m.stats = msg.stats
		m.motivation = msg.motivation
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" GTD Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	listsPanel := m.renderListsPanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		listsPanel = m.applyPanelStyle(panelLists, listsPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, listsPanel, metricsPanel, alertsPanel)
	} else {
		panelWidth := max(availableWidth-4, 20)
		listsPanel = m.applyPanelStyle(panelLists, listsPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, listsPanel, metricsPanel, alertsPanel)
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

func (m dashboardModel) renderListsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Lists"))
	b.WriteString("\n")

	total := 0
	for _, status := range models.AllStatuses {
		count := m.listCounts[status]
		total += count
		label := fmt.Sprintf("  %-12s %d", status, count)
		b.WriteString(statusStyles[status].Render(label))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n  Total: %d\n", total)
	fmt.Fprintf(&b, "  Inbox sorted: %d%%\n", m.progress)
	fmt.Fprintf(&b, "  Done today: %d (%d key)\n", m.stats.TodayDone, m.stats.TodayKeyDone)
	fmt.Fprintf(&b, "  Done this week: %d (%d key)\n", m.stats.WeekDone, m.stats.WeekKeyDone)
	if m.motivation != "" {
		fmt.Fprintf(&b, "\n  %s", m.motivation)
	}
	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Captured", md.tasksCreated},
		{"Sorted", md.tasksSorted},
		{"Urgent", md.urgentSorted},
		{"Completed", md.tasksCompleted},
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "  %-14s %d\n", l.label, l.value)
	}
	fmt.Fprintf(&b, "  %-14s %.0f%%\n", "Abandoned", md.abandonRate*100)
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		fmt.Fprintf(&b, "  %s %s\n", sev, a.message)
	}
	fmt.Fprintf(&b, "\n  Total: %d alert(s)", len(m.alerts))
	return b.String()
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		listCounts: make(map[models.TaskStatus]int),
	}

	if TaskMgr != nil {
		tasks, err := TaskMgr.ListTasks("")
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for _, t := range tasks {
			result.listCounts[t.Status]++
		}
		if result.progress, err = TaskMgr.Progress(); err != nil {
			result.err = fmt.Errorf("loading progress: %w", err)
			return result
		}
		if result.stats, err = TaskMgr.Stats(); err != nil {
			result.err = fmt.Errorf("loading stats: %w", err)
			return result
		}
		if result.motivation, err = TaskMgr.Motivation(); err != nil {
			result.err = fmt.Errorf("loading motivation: %w", err)
			return result
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			tasksCreated:   metrics.TasksCreated,
			tasksSorted:    metrics.TasksSorted,
			urgentSorted:   metrics.UrgentSorted,
			tasksCompleted: metrics.TasksCompleted,
			abandonRate:    metrics.AbandonRate(),
			eventCount:     metrics.EventCount,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})
		result.alerts = make([]alertSnapshot, 0, len(alerts))
		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for lists, metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing how many tasks sit in
each list, inbox progress, sorting metrics and active alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
