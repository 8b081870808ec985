package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// projectPhase tracks progress through the project description form.
type projectPhase int

const (
	phaseOutcome projectPhase = iota
	phaseSteps
	phaseFirstStep
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
)

// sortWizardModel drives one sort session in the terminal. Each answer is
// sent to the SortService, which owns the session state.
type sortWizardModel struct {
	sorter   core.SortService
	loc      *time.Location
	taskText string
	view     *core.SortView
	input    textinput.Model

	phase   projectPhase
	outcome string
	steps   []string
	cursor  int

	// err is a recoverable problem with the last answer.
	err error
	// failed ends the wizard with an error.
	failed    error
	abandoned bool
}

func newSortWizardModel(sorter core.SortService, task *models.Task, view *core.SortView, loc *time.Location) sortWizardModel {
	ti := textinput.New()
	ti.CharLimit = 256
	if loc == nil {
		loc = time.UTC
	}
	m := sortWizardModel{
		sorter:   sorter,
		loc:      loc,
		taskText: task.Text,
		view:     view,
		input:    ti,
	}
	m.prepareInput()
	return m
}

func (m sortWizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m sortWizardModel) expects() models.InputKind {
	if m.view.Question == nil {
		return ""
	}
	return m.view.Question.Expects
}

// prepareInput resets the text input for the current question.
func (m *sortWizardModel) prepareInput() {
	m.input.Reset()
	m.input.Blur()
	m.phase = phaseOutcome
	m.outcome = ""
	m.steps = nil
	m.cursor = 0
	switch m.expects() {
	case models.InputText:
		m.input.Placeholder = "name"
		m.input.Focus()
	case models.InputDatetime:
		m.input.Placeholder = "YYYY-MM-DD HH:MM"
		m.input.Focus()
	case models.InputProject:
		m.input.Placeholder = "what does done look like?"
		m.input.Focus()
	}
}

func (m sortWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if key.Type == tea.KeyCtrlC {
		return m.abandon()
	}
	if m.view.Finished() {
		return m, tea.Quit
	}

	switch m.expects() {
	case models.InputBoolean:
		return m.updateBoolean(key)
	case models.InputText, models.InputDatetime:
		return m.updateText(key)
	case models.InputProject:
		return m.updateProject(key)
	}
	return m, nil
}

func (m sortWizardModel) updateBoolean(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(key.String()) {
	case "y":
		return m.answer(core.BoolAnswer(true))
	case "n":
		return m.answer(core.BoolAnswer(false))
	case "b", "backspace":
		return m.back()
	case "q", "esc":
		return m.abandon()
	}
	return m, nil
}

func (m sortWizardModel) updateText(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		return m.back()
	case tea.KeyEnter:
		value := m.input.Value()
		if m.expects() == models.InputText {
			return m.answer(core.TextAnswer(value))
		}
		at, err := core.ParseDatetime(value, m.loc)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.answer(core.DatetimeAnswer{At: at})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m sortWizardModel) updateProject(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseOutcome:
		switch key.Type {
		case tea.KeyEsc:
			return m.back()
		case tea.KeyEnter:
			if strings.TrimSpace(m.input.Value()) == "" {
				m.err = &core.ValidationError{Field: "outcome", Reason: "must not be empty"}
				return m, nil
			}
			m.outcome = m.input.Value()
			m.input.Reset()
			m.input.Placeholder = "next step (empty line to finish)"
			m.phase = phaseSteps
			m.err = nil
			return m, nil
		}
	case phaseSteps:
		switch key.Type {
		case tea.KeyEsc:
			m.input.SetValue(m.outcome)
			m.input.Placeholder = "what does done look like?"
			m.steps = nil
			m.phase = phaseOutcome
			return m, nil
		case tea.KeyEnter:
			step := strings.TrimSpace(m.input.Value())
			if step != "" {
				m.steps = append(m.steps, step)
				m.input.Reset()
				m.err = nil
				return m, nil
			}
			if len(m.steps) == 0 {
				m.err = &core.ValidationError{Field: "steps", Reason: "at least one non-empty step is required"}
				return m, nil
			}
			m.input.Blur()
			m.phase = phaseFirstStep
			m.cursor = 0
			m.err = nil
			return m, nil
		}
	case phaseFirstStep:
		switch key.Type {
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown:
			if m.cursor < len(m.steps)-1 {
				m.cursor++
			}
		case tea.KeyEsc:
			m.phase = phaseSteps
			m.input.Focus()
		case tea.KeyEnter:
			return m.answer(core.ProjectAnswer{
				Outcome:   m.outcome,
				Steps:     append([]string(nil), m.steps...),
				FirstStep: m.steps[m.cursor],
			})
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m sortWizardModel) answer(a core.Answer) (tea.Model, tea.Cmd) {
	view, err := m.sorter.Answer(m.view.Session.ID, a)
	if err != nil {
		if core.IsRecoverable(err) {
			m.err = err
			return m, nil
		}
		m.failed = err
		return m, tea.Quit
	}
	m.view = view
	m.err = nil
	if view.Finished() {
		return m, tea.Quit
	}
	m.prepareInput()
	return m, nil
}

func (m sortWizardModel) back() (tea.Model, tea.Cmd) {
	view, err := m.sorter.Back(m.view.Session.ID)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.view = view
	m.err = nil
	m.prepareInput()
	return m, nil
}

func (m sortWizardModel) abandon() (tea.Model, tea.Cmd) {
	if !m.view.Finished() {
		if err := m.sorter.Abandon(m.view.Session.ID); err != nil {
			m.failed = err
			return m, tea.Quit
		}
		m.abandoned = true
	}
	return m, tea.Quit
}

func (m sortWizardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Sort: " + m.taskText + " "))
	b.WriteString("\n\n")

	if m.view.Finished() {
		b.WriteString(doneStyle.Render("✓ " + describeDisposition(*m.view.Session.Disposition)))
		b.WriteString("\n")
		return b.String()
	}
	if m.abandoned {
		b.WriteString("Sort abandoned.\n")
		return b.String()
	}

	q := m.view.Question
	b.WriteString(questionStyle.Render(fmt.Sprintf("Q%d. %s", q.Number, q.Prompt)))
	b.WriteString("\n\n")

	var help string
	switch q.Expects {
	case models.InputBoolean:
		help = "y: yes | n: no | b: back | q: abandon"
	case models.InputText, models.InputDatetime:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		help = "enter: submit | esc: back | ctrl+c: abandon"
	case models.InputProject:
		b.WriteString(m.projectView())
		help = "enter: next | esc: back | ctrl+c: abandon"
		if m.phase == phaseFirstStep {
			help = "↑/↓: choose | enter: confirm | esc: back | ctrl+c: abandon"
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m sortWizardModel) projectView() string {
	var b strings.Builder
	switch m.phase {
	case phaseOutcome:
		b.WriteString("Outcome: ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case phaseSteps, phaseFirstStep:
		fmt.Fprintf(&b, "Outcome: %s\n", m.outcome)
		for i, s := range m.steps {
			prefix := "  "
			if m.phase == phaseFirstStep && i == m.cursor {
				prefix = cursorStyle.Render("> ")
			}
			fmt.Fprintf(&b, "%s%d. %s\n", prefix, i+1, s)
		}
		if m.phase == phaseSteps {
			b.WriteString("Step: ")
			b.WriteString(m.input.View())
			b.WriteString("\n")
		} else {
			b.WriteString("\nWhich step comes first?\n")
		}
	}
	return b.String()
}
