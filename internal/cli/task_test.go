package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

func TestRootCommand_Registration(t *testing.T) {
	expected := []string{"add", "list", "show", "done", "sort", "stats", "metrics", "alerts", "dashboard", "serve", "mcp", "version"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("expected %q command to be registered on root", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := appVersion, appCommit, appDate
	defer SetVersionInfo(origVersion, origCommit, origDate)
	SetVersionInfo("1.2.3", "abc123", "2024-03-10")

	var buf strings.Builder
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"gtd 1.2.3", "abc123", "2024-03-10"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestAddCmd_NotInitialized(t *testing.T) {
	orig := TaskMgr
	defer func() { TaskMgr = orig }()
	TaskMgr = nil

	_, err := runCmd(t, addCmd, "buy", "milk")
	if !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
}

func TestAddCmd_CapturesIntoInbox(t *testing.T) {
	tm, _ := withServices(t)
	setFlags(t, addCmd, "key", "true", "with", "bob,anna")

	out, err := runCmd(t, addCmd, "prepare", "the", "report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Captured GTD-00001: prepare the report") {
		t.Errorf("unexpected output: %q", out)
	}

	task, err := tm.GetTask("GTD-00001")
	if err != nil {
		t.Fatalf("getting task: %v", err)
	}
	if task.Status != models.StatusInbox {
		t.Errorf("status = %s, want inbox", task.Status)
	}
	if !task.IsKey || task.IsGolden {
		t.Errorf("flags not applied: key=%v golden=%v", task.IsKey, task.IsGolden)
	}
	if strings.Join(task.Collaborators, ",") != "anna,bob" {
		t.Errorf("collaborators = %v", task.Collaborators)
	}
}

func TestAddCmd_BlankText(t *testing.T) {
	withServices(t)

	_, err := runCmd(t, addCmd, "   ")
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "text" {
		t.Fatalf("expected text validation error, got %v", err)
	}
}

func TestListCmd_Empty(t *testing.T) {
	withServices(t)

	out, err := runCmd(t, listCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No tasks found.") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestListCmd_FilterByStatus(t *testing.T) {
	tm, sorter := withServices(t)
	mustCreate(t, tm, "stays in inbox")
	sorted := mustCreate(t, tm, "goes to today")
	yes, no := true, false
	if _, err := sorter.SortWithAnswers(sorted.ID, models.SortAnswers{
		NeedAction: &yes, UrgentThisWeek: &no, DoByMe: &yes, OneStep: &yes, CanDoNow: &yes,
	}); err != nil {
		t.Fatalf("sorting: %v", err)
	}

	setFlags(t, listCmd, "status", "TODAY")
	out, err := runCmd(t, listCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "goes to today") {
		t.Errorf("expected today task in output:\n%s", out)
	}
	if strings.Contains(out, "stays in inbox") {
		t.Errorf("inbox task should be filtered out:\n%s", out)
	}
}

func TestListCmd_UnknownStatus(t *testing.T) {
	withServices(t)
	setFlags(t, listCmd, "status", "someday")

	_, err := runCmd(t, listCmd)
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "status" {
		t.Fatalf("expected status validation error, got %v", err)
	}
}

func TestListCmd_Markers(t *testing.T) {
	tm, _ := withServices(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "quarterly plan", IsKey: true, IsGolden: true}); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, listCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "★ ◆ quarterly plan") {
		t.Errorf("expected key and golden markers:\n%s", out)
	}
}

func TestShowCmd(t *testing.T) {
	tm, sorter := withServices(t)
	task := mustCreate(t, tm, "call the bank")
	yes, no := true, false
	anna := "anna"
	if _, err := sorter.SortWithAnswers(task.ID, models.SortAnswers{
		NeedAction: &yes, UrgentThisWeek: &no, DoByMe: &no, Responsible: &anna,
	}); err != nil {
		t.Fatalf("sorting: %v", err)
	}

	out, err := runCmd(t, showCmd, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"call the bank", "delegated", "Delegated to:", "anna", "Sorted:"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowCmd_NotFound(t *testing.T) {
	withServices(t)

	_, err := runCmd(t, showCmd, "GTD-09999")
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDoneCmd(t *testing.T) {
	tm, _ := withServices(t)
	task := mustCreate(t, tm, "water plants")

	out, err := runCmd(t, doneCmd, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Completed GTD-00001") {
		t.Errorf("unexpected output: %q", out)
	}

	_, err = runCmd(t, doneCmd, task.ID)
	if !errors.Is(err, core.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted on second completion, got %v", err)
	}
}

func TestStatsCmd(t *testing.T) {
	tm, _ := withServices(t)
	key, err := tm.CreateTask(models.TaskInput{Text: "key task", IsKey: true})
	if err != nil {
		t.Fatal(err)
	}
	mustCreate(t, tm, "still in inbox")
	if _, err := tm.CompleteTask(key.ID); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, statsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1 (1 key)") {
		t.Errorf("expected one key completion:\n%s", out)
	}
	// One task left in the inbox and none sorted.
	if !strings.Contains(out, " 0%\n") {
		t.Errorf("expected 0%% inbox progress:\n%s", out)
	}
}
