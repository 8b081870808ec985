package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

var errNotInitialized = errors.New("task manager not initialized")

var (
	addKey           bool
	addGolden        bool
	addCollaborators []string
	listStatus       string
)

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Capture a new task into the inbox",
	Long: `Capture a new task into the inbox. All arguments are joined into the
task text. Sort it later with 'gtd sort <id>'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		task, err := TaskMgr.CreateTask(models.TaskInput{
			Text:          strings.Join(args, " "),
			IsKey:         addKey,
			IsGolden:      addGolden,
			Collaborators: addCollaborators,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Captured %s: %s\n", task.ID, task.Text)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Long: `List tasks, newest first. Use --status to show a single list:
inbox, today, calendar, delegated, project or done.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		tasks, err := TaskMgr.ListTasks(models.TaskStatus(strings.ToLower(listStatus)))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%-10s %-10s %s%s\n", t.ID, t.Status, marker(t), t.Text)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		task, err := TaskMgr.GetTask(args[0])
		if err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		task, err := TaskMgr.CompleteTask(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s: %s\n", task.ID, task.Text)
		return nil
	},
}

// marker flags key and golden tasks in listings.
func marker(t *models.Task) string {
	var m string
	if t.IsKey {
		m += "★ "
	}
	if t.IsGolden {
		m += "◆ "
	}
	return m
}

func printTask(w io.Writer, t *models.Task) {
	fmt.Fprintf(w, "%-14s %s\n", "ID:", t.ID)
	fmt.Fprintf(w, "%-14s %s\n", "Text:", t.Text)
	fmt.Fprintf(w, "%-14s %s\n", "Status:", t.Status)
	if t.IsKey {
		fmt.Fprintf(w, "%-14s yes\n", "Key:")
	}
	if t.IsGolden {
		fmt.Fprintf(w, "%-14s yes\n", "Golden:")
	}
	if len(t.Collaborators) > 0 {
		fmt.Fprintf(w, "%-14s %s\n", "Collaborators:", strings.Join(t.Collaborators, ", "))
	}
	if t.Responsible != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Delegated to:", *t.Responsible)
	}
	if t.DueDatetime != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Due:", t.DueDatetime.In(Location).Format("2006-01-02 15:04"))
	}
	if t.Project != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Outcome:", t.Project.Outcome)
		for i, step := range t.Project.Steps {
			first := ""
			if step == t.Project.FirstStep {
				first = " (first)"
			}
			fmt.Fprintf(w, "%-14s %d. %s%s\n", "", i+1, step, first)
		}
	}
	if t.ParentID != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Project:", *t.ParentID)
	}
	fmt.Fprintf(w, "%-14s %s\n", "Created:", t.CreatedAt.Format(time.RFC3339))
	if t.SortedAt != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Sorted:", t.SortedAt.Format(time.RFC3339))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "%-14s %s\n", "Completed:", t.CompletedAt.Format(time.RFC3339))
	}
}

func init() {
	addCmd.Flags().BoolVar(&addKey, "key", false, "Mark as a key task")
	addCmd.Flags().BoolVar(&addGolden, "golden", false, "Mark as a golden task")
	addCmd.Flags().StringSliceVar(&addCollaborators, "with", nil, "Collaborators (comma-separated)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only list tasks with this status")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, doneCmd)
}
