package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

var (
	sortNeedAction  bool
	sortUrgent      bool
	sortByMe        bool
	sortOneStep     bool
	sortNow         bool
	sortHasDate     bool
	sortDue         string
	sortResponsible string
	sortOutcome     string
	sortSteps       []string
	sortFirstStep   string
)

// batchFlags are the answer flags; setting any of them skips the wizard.
var batchFlags = []string{
	"need-action", "urgent", "by-me", "one-step", "now", "has-date",
	"due", "responsible", "outcome", "step", "first-step",
}

var sortCmd = &cobra.Command{
	Use:   "sort <id>",
	Short: "Sort a task with the decision-tree wizard",
	Long: `Sort a task by answering the wizard's questions in an interactive
terminal UI. Press y/n for yes/no questions, b to go back, and q to abandon.

Answers can also be given up front as flags, in which case no UI is shown:

  gtd sort GTD-00004 --need-action --urgent=false --by-me=false --responsible=anna
  gtd sort GTD-00007 --need-action --urgent --by-me --one-step --now=false \
      --has-date --due "2024-03-12 09:30"

Only the answers on the path taken are required; a missing one is reported
by name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		if batchMode(cmd) {
			return runBatchSort(cmd, args[0])
		}
		return runInteractiveSort(cmd, args[0])
	},
}

func batchMode(cmd *cobra.Command) bool {
	for _, name := range batchFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// answersFromFlags collects the flags that were set into an answer bundle.
func answersFromFlags(cmd *cobra.Command) (models.SortAnswers, error) {
	var a models.SortAnswers
	flags := cmd.Flags()
	boolFlag := func(name string, v bool) *bool {
		if !flags.Changed(name) {
			return nil
		}
		return &v
	}
	a.NeedAction = boolFlag("need-action", sortNeedAction)
	a.UrgentThisWeek = boolFlag("urgent", sortUrgent)
	a.DoByMe = boolFlag("by-me", sortByMe)
	a.OneStep = boolFlag("one-step", sortOneStep)
	a.CanDoNow = boolFlag("now", sortNow)
	a.HasDatetime = boolFlag("has-date", sortHasDate)

	if flags.Changed("due") {
		due, err := core.ParseDatetime(sortDue, Location)
		if err != nil {
			return a, err
		}
		a.Datetime = &due
	}
	if flags.Changed("responsible") {
		r := sortResponsible
		a.Responsible = &r
	}
	if flags.Changed("outcome") {
		o := sortOutcome
		a.ProjectOutcome = &o
	}
	if flags.Changed("step") {
		a.ProjectSteps = append([]string(nil), sortSteps...)
	}
	if flags.Changed("first-step") {
		f := sortFirstStep
		a.ProjectFirstStep = &f
	}
	return a, nil
}

func runBatchSort(cmd *cobra.Command, taskID string) error {
	answers, err := answersFromFlags(cmd)
	if err != nil {
		return err
	}
	d, err := core.Classify(answers)
	if err != nil {
		return err
	}
	task, err := Sorter.SortWithAnswers(taskID, answers)
	if err != nil {
		return err
	}
	printSortResult(cmd.OutOrStdout(), d, task)
	return nil
}

func runInteractiveSort(cmd *cobra.Command, taskID string) error {
	task, err := TaskMgr.GetTask(taskID)
	if err != nil {
		return err
	}
	view, err := Sorter.Start(taskID)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newSortWizardModel(Sorter, task, view, Location))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running sort wizard: %w", err)
	}
	m := final.(sortWizardModel)
	switch {
	case m.failed != nil:
		return m.failed
	case m.abandoned:
		fmt.Fprintln(cmd.OutOrStdout(), "Sort abandoned; the task is unchanged.")
	case m.view.Finished():
		printSortResult(cmd.OutOrStdout(), *m.view.Session.Disposition, m.view.Task)
	}
	return nil
}

// describeDisposition renders a disposition as one line.
func describeDisposition(d models.Disposition) string {
	var s string
	switch d.Kind {
	case models.DispositionDiscard:
		s = "no action needed"
	case models.DispositionDelegate:
		s = "delegated to " + d.Responsible
	case models.DispositionDoToday:
		s = "do it today"
	case models.DispositionSchedule:
		s = "scheduled for " + d.DueDatetime.In(Location).Format("2006-01-02 15:04")
	case models.DispositionDecompose:
		s = fmt.Sprintf("project %q, first step %q", d.Project.Outcome, d.Project.FirstStep)
	default:
		s = string(d.Kind)
	}
	if d.Urgent {
		s += " (urgent this week)"
	}
	return s
}

func printSortResult(w io.Writer, d models.Disposition, task *models.Task) {
	fmt.Fprintf(w, "Sorted %s: %s\n", task.ID, describeDisposition(d))
	if d.Kind == models.DispositionDiscard {
		fmt.Fprintf(w, "%s stays in the %s list.\n", task.ID, task.Status)
		return
	}
	fmt.Fprintf(w, "%s is now in the %s list.\n", task.ID, task.Status)
}

func init() {
	f := sortCmd.Flags()
	f.BoolVar(&sortNeedAction, "need-action", false, "Q1: does it require any action")
	f.BoolVar(&sortUrgent, "urgent", false, "Q2: is it urgent within this week")
	f.BoolVar(&sortByMe, "by-me", false, "Q3: must you do it personally")
	f.BoolVar(&sortOneStep, "one-step", false, "Q4: can it be completed in a single step")
	f.BoolVar(&sortNow, "now", false, "Q5: can you do it right now")
	f.BoolVar(&sortHasDate, "has-date", false, "Q6: does it have a fixed date or time")
	f.StringVar(&sortDue, "due", "", "Q7: when it is due (RFC 3339 or YYYY-MM-DD HH:MM)")
	f.StringVar(&sortResponsible, "responsible", "", "who to delegate to")
	f.StringVar(&sortOutcome, "outcome", "", "project outcome")
	f.StringArrayVar(&sortSteps, "step", nil, "project step (repeatable)")
	f.StringVar(&sortFirstStep, "first-step", "", "project first step, one of --step")
	rootCmd.AddCommand(sortCmd)
}
