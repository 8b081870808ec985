package core

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

func setupTaskManager(t *testing.T) (TaskManager, *inMemoryTaskStore, *recordingEvents, *fixedClock) {
	t.Helper()
	store := newInMemoryTaskStore()
	events := &recordingEvents{}
	clock := &fixedClock{t: t0}
	tm := NewTaskManager(store, &seqIDGen{}, events, TaskManagerOpts{
		Now:        clock.now,
		Motivation: NewMotivationPicker(DefaultMotivation(), rand.New(rand.NewPCG(7, 7))),
	})
	return tm, store, events, clock
}

func TestCreateTask(t *testing.T) {
	tm, store, events, _ := setupTaskManager(t)

	task, err := tm.CreateTask(models.TaskInput{
		Text:          "  Buy milk  ",
		IsKey:         true,
		Collaborators: []string{" bob", "alice", "", "bob"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "T-1" || task.Text != "Buy milk" || task.Status != models.StatusInbox {
		t.Errorf("task = %+v", task)
	}
	if !slices.Equal(task.Collaborators, []string{"alice", "bob"}) {
		t.Errorf("collaborators = %v", task.Collaborators)
	}
	if !task.CreatedAt.Equal(t0) || task.SortedAt != nil || task.Version != 1 {
		t.Errorf("timestamps/version = %v %v %d", task.CreatedAt, task.SortedAt, task.Version)
	}
	if _, err := store.Get("T-1"); err != nil {
		t.Errorf("task not stored: %v", err)
	}
	if got := events.types(); !slices.Equal(got, []string{"task.created"}) {
		t.Errorf("events = %v", got)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	tm, _, _, _ := setupTaskManager(t)

	var ve *ValidationError
	if _, err := tm.CreateTask(models.TaskInput{Text: "   "}); !errors.As(err, &ve) || ve.Field != "text" {
		t.Errorf("blank text: got %v", err)
	}
	if _, err := tm.CreateTask(models.TaskInput{Text: "x", Status: models.StatusToday}); !errors.As(err, &ve) || ve.Field != "status" {
		t.Errorf("non-inbox status: got %v", err)
	}
	if _, err := tm.CreateTask(models.TaskInput{Text: "x", Status: models.StatusInbox}); err != nil {
		t.Errorf("explicit inbox status rejected: %v", err)
	}
}

func TestListTasks_NewestFirstAndFiltered(t *testing.T) {
	tm, _, _, clock := setupTaskManager(t)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := tm.CreateTask(models.TaskInput{Text: text}); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Minute)
	}
	if _, err := tm.SortTask("T-2", models.DoToday()); err != nil {
		t.Fatal(err)
	}

	all, err := tm.ListTasks("")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, task := range all {
		ids = append(ids, task.ID)
	}
	if !slices.Equal(ids, []string{"T-3", "T-2", "T-1"}) {
		t.Errorf("order = %v, want newest first", ids)
	}

	inbox, err := tm.ListTasks(models.StatusInbox)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 2 {
		t.Errorf("inbox has %d tasks, want 2", len(inbox))
	}

	var ve *ValidationError
	if _, err := tm.ListTasks("someday"); !errors.As(err, &ve) {
		t.Errorf("unknown status: got %v", err)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	tm, _, _, _ := setupTaskManager(t)
	_, err := tm.GetTask("T-404")
	if !errors.Is(err, ErrTaskNotFound) || !IsNotFound(err) {
		t.Errorf("got %v, want ErrTaskNotFound", err)
	}
}

func TestSortTask_PersistsAndLogs(t *testing.T) {
	tm, store, events, clock := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Call dentist"}); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Hour)

	d := models.Delegate("alice")
	d.Urgent = true
	sorted, err := tm.SortTask("T-1", d)
	if err != nil {
		t.Fatal(err)
	}
	if sorted.Status != models.StatusDelegated || *sorted.Responsible != "alice" {
		t.Errorf("sorted = %+v", sorted)
	}
	if !sorted.SortedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("sorted_at = %v", sorted.SortedAt)
	}
	if sorted.Version != 2 {
		t.Errorf("version = %d, want 2", sorted.Version)
	}
	stored, _ := store.Get("T-1")
	if stored.Status != models.StatusDelegated {
		t.Errorf("stored status = %s", stored.Status)
	}

	last := events.events[len(events.events)-1]
	if last.Type != "task.sorted" || last.Data["disposition"] != "delegate" || last.Data["urgent"] != true {
		t.Errorf("last event = %+v", last)
	}
}

func TestSortTask_ResortClearsPreviousFields(t *testing.T) {
	tm, _, _, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Dinner"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Schedule(t0.Add(24*time.Hour))); err != nil {
		t.Fatal(err)
	}
	got, err := tm.SortTask("T-1", models.Delegate("bob"))
	if err != nil {
		t.Fatal(err)
	}
	if got.DueDatetime != nil {
		t.Error("due_datetime kept after re-sorting")
	}
	if err := ValidateTask(*got); err != nil {
		t.Errorf("ValidateTask: %v", err)
	}
}

func TestSortTask_DiscardKeepsInbox(t *testing.T) {
	tm, store, events, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Old flyer"}); err != nil {
		t.Fatal(err)
	}
	got, err := tm.SortTask("T-1", models.Discard())
	if err != nil {
		t.Fatal(err)
	}
	stored, _ := store.Get("T-1")
	if got.Status != models.StatusInbox || stored.Status != models.StatusInbox || stored.Version != 1 {
		t.Errorf("discard mutated task: %+v / %+v", got, stored)
	}
	if events.types()[1] != "task.sorted" {
		t.Errorf("events = %v", events.types())
	}
}

func TestSortTask_DecomposeCreatesFirstStep(t *testing.T) {
	tm, store, _, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Organize conference", IsKey: true, IsGolden: true}); err != nil {
		t.Fatal(err)
	}
	project, err := tm.SortTask("T-1", models.Decompose("Successful conference", []string{"Book venue", "Invite speakers"}, "Book venue"))
	if err != nil {
		t.Fatal(err)
	}
	if project.Status != models.StatusProject || project.Project.FirstStep != "Book venue" {
		t.Fatalf("project = %+v", project)
	}

	children, err := store.List(TaskFilter{ParentID: "T-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Fatalf("got %d first-step tasks, want 1", len(children))
	}
	step := children[0]
	if step.Text != "Book venue" || step.Status != models.StatusToday || !step.IsKey || !step.IsGolden {
		t.Errorf("first step = %+v", step)
	}
	if step.SortedAt == nil {
		t.Error("first step should be marked as sorted")
	}
	if err := ValidateTask(step); err != nil {
		t.Errorf("ValidateTask(first step): %v", err)
	}
}

// failingIDGen hands out IDs until its budget runs out.
type failingIDGen struct {
	seqIDGen
	left int
}

func (g *failingIDGen) GenerateTaskID() (string, error) {
	if g.left <= 0 {
		return "", errors.New("counter file unavailable")
	}
	g.left--
	return g.seqIDGen.GenerateTaskID()
}

// childRejectingStore fails every Create of a task with a parent.
type childRejectingStore struct {
	*inMemoryTaskStore
}

func (s childRejectingStore) Create(task models.Task) error {
	if task.ParentID != nil {
		return errors.New("disk full")
	}
	return s.inMemoryTaskStore.Create(task)
}

func TestSortTask_DecomposeLeavesTaskWhenStepIDFails(t *testing.T) {
	store := newInMemoryTaskStore()
	tm := NewTaskManager(store, &failingIDGen{left: 1}, nil, TaskManagerOpts{Now: (&fixedClock{t: t0}).now})
	if _, err := tm.CreateTask(models.TaskInput{Text: "Plan trip"}); err != nil {
		t.Fatal(err)
	}

	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a"}, "a")); err == nil {
		t.Fatal("expected an error when the first step cannot get an ID")
	}
	stored, _ := store.Get("T-1")
	if stored.Status != models.StatusInbox || stored.Project != nil || stored.Version != 1 {
		t.Errorf("task changed after a failed decompose: %+v", stored)
	}
	if children, _ := store.List(TaskFilter{ParentID: "T-1"}); len(children) != 0 {
		t.Errorf("got %d first-step tasks, want 0", len(children))
	}
}

func TestSortTask_DecomposeRestoresTaskWhenStepWriteFails(t *testing.T) {
	mem := newInMemoryTaskStore()
	tm := NewTaskManager(childRejectingStore{mem}, &seqIDGen{}, nil, TaskManagerOpts{Now: (&fixedClock{t: t0}).now})
	if _, err := tm.CreateTask(models.TaskInput{Text: "Plan trip"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Delegate("anna")); err != nil {
		t.Fatal(err)
	}

	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a"}, "a")); err == nil {
		t.Fatal("expected an error when the first step cannot be stored")
	}
	stored, _ := mem.Get("T-1")
	if stored.Status != models.StatusDelegated || stored.Responsible == nil || *stored.Responsible != "anna" {
		t.Errorf("task not restored: %+v", stored)
	}
	if stored.Project != nil {
		t.Error("project kept after a failed decompose")
	}
	if err := ValidateTask(*stored); err != nil {
		t.Errorf("ValidateTask(restored): %v", err)
	}
}

func TestSortTask_ResortReleasesFirstSteps(t *testing.T) {
	tm, store, events, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Organize conference"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a", "b"}, "a")); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a", "b"}, "b")); err != nil {
		t.Fatal(err)
	}

	children, _ := store.List(TaskFilter{ParentID: "T-1"})
	if len(children) != 1 {
		t.Fatalf("got %d first-step tasks after decomposing twice, want 1", len(children))
	}
	if children[0].ID != "T-2" || children[0].Text != "b" || children[0].Status != models.StatusToday {
		t.Errorf("first step = %+v, want T-2 rewritten to b", children[0])
	}

	if _, err := tm.SortTask("T-1", models.DoToday()); err != nil {
		t.Fatal(err)
	}
	if children, _ := store.List(TaskFilter{ParentID: "T-1"}); len(children) != 0 {
		t.Errorf("got %d steps still attached to a non-project, want 0", len(children))
	}
	step, _ := store.Get("T-2")
	if step.Status != models.StatusInbox || step.ParentID != nil || step.SortedAt != nil {
		t.Errorf("released step = %+v, want a loose inbox item", step)
	}
	if err := ValidateTask(*step); err != nil {
		t.Errorf("ValidateTask(released step): %v", err)
	}
	if !slices.Contains(events.types(), "task.released") {
		t.Errorf("events = %v, want task.released", events.types())
	}
}

func TestSortTask_ResortKeepsHandledSteps(t *testing.T) {
	tm, store, _, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Move house"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a"}, "a")); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.CompleteTask("T-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Decompose("o", []string{"a", "b"}, "b")); err != nil {
		t.Fatal(err)
	}

	done, _ := store.Get("T-2")
	if done.Status != models.StatusDone || done.ParentID == nil {
		t.Errorf("completed step = %+v, want it untouched", done)
	}
	next, err := store.Get("T-3")
	if err != nil {
		t.Fatalf("second first step not created: %v", err)
	}
	if next.Text != "b" || next.ParentID == nil || *next.ParentID != "T-1" {
		t.Errorf("second first step = %+v", next)
	}
}

func TestSortTask_Errors(t *testing.T) {
	tm, store, _, _ := setupTaskManager(t)
	if _, err := tm.SortTask("T-9", models.DoToday()); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task: got %v", err)
	}

	if _, err := tm.CreateTask(models.TaskInput{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Disposition{Kind: models.DispositionSchedule}); !errors.Is(err, ErrDispositionTaskMismatch) {
		t.Errorf("malformed disposition: got %v", err)
	}
	if stored, _ := store.Get("T-1"); stored.Status != models.StatusInbox {
		t.Error("task changed after a rejected disposition")
	}

	if _, err := tm.CompleteTask("T-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.DoToday()); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("sorting a done task: got %v", err)
	}
}

func TestSortTask_VersionConflict(t *testing.T) {
	tm, store, _, _ := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Shared"}); err != nil {
		t.Fatal(err)
	}
	// Another writer sorts the task between our read and write.
	stale, _ := store.Get("T-1")
	if _, err := tm.SortTask("T-1", models.DoToday()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update(*stale); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale update: got %v, want ErrVersionConflict", err)
	}
}

func TestCompleteTask(t *testing.T) {
	tm, _, events, clock := setupTaskManager(t)
	if _, err := tm.CreateTask(models.TaskInput{Text: "Report", IsKey: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.SortTask("T-1", models.Schedule(t0.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	clock.advance(2 * time.Hour)

	done, err := tm.CompleteTask("T-1")
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.StatusDone || !done.CompletedAt.Equal(clock.t) || done.DueDatetime != nil {
		t.Errorf("done = %+v", done)
	}
	if got := events.types(); got[len(got)-1] != "task.completed" {
		t.Errorf("events = %v", got)
	}

	if _, err := tm.CompleteTask("T-1"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second completion: got %v", err)
	}
}

func TestStatsProgressMotivation(t *testing.T) {
	tm, store, _, _ := setupTaskManager(t)

	pct, err := tm.Progress()
	if err != nil || pct != 100 {
		t.Errorf("empty progress = %d, %v", pct, err)
	}

	for _, text := range []string{"a", "b", "c", "d"} {
		if _, err := tm.CreateTask(models.TaskInput{Text: text, IsKey: text == "a"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tm.SortTask("T-2", models.DoToday()); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.CompleteTask("T-1"); err != nil {
		t.Fatal(err)
	}
	old := t0.AddDate(0, 0, -30)
	store.put(models.Task{ID: "OLD", Text: "ancient", Status: models.StatusDone, CreatedAt: old, CompletedAt: &old, Version: 1})

	stats, err := tm.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats != (models.Stats{TodayDone: 1, TodayKeyDone: 1, WeekDone: 1, WeekKeyDone: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	// today=1 (T-2), inbox=2 (T-3, T-4).
	if pct, _ := tm.Progress(); pct != 33 {
		t.Errorf("progress = %d, want 33", pct)
	}

	msg, err := tm.Motivation()
	if err != nil || msg == "" {
		t.Errorf("motivation = %q, %v", msg, err)
	}
}

func TestNormalizeCollaborators(t *testing.T) {
	got := NormalizeCollaborators([]string{"  zed", "amy", "", "zed ", "  "})
	if !slices.Equal(got, []string{"amy", "zed"}) {
		t.Errorf("got %v", got)
	}
	if got := NormalizeCollaborators(nil); len(got) != 0 {
		t.Errorf("nil input: got %v", got)
	}
}
