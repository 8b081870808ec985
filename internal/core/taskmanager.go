package core

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// TaskStore is the persistence contract TaskManager needs. Defining it here
// keeps core independent of the storage package.
//
// Update must perform an optimistic version check: it fails with
// ErrVersionConflict unless task.Version equals the stored version, and on
// success stores the task with Version incremented. This is how concurrent
// sorting of the same task from two places is arbitrated.
type TaskStore interface {
	Create(task models.Task) error
	Get(id string) (*models.Task, error)
	Update(task models.Task) (*models.Task, error)
	List(filter TaskFilter) ([]models.Task, error)
}

// TaskFilter narrows TaskStore.List. Empty fields match everything.
type TaskFilter struct {
	Status   []models.TaskStatus
	ParentID string
}

// EventLogger records domain events. The observability event log satisfies it
// through an adapter in the app wiring.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// TaskManager defines the task lifecycle operations.
type TaskManager interface {
	CreateTask(in models.TaskInput) (*models.Task, error)
	GetTask(id string) (*models.Task, error)
	ListTasks(status models.TaskStatus) ([]*models.Task, error)
	SortTask(id string, d models.Disposition) (*models.Task, error)
	CompleteTask(id string) (*models.Task, error)
	Stats() (models.Stats, error)
	Progress() (int, error)
	Motivation() (string, error)
}

// TaskManagerOpts carries optional collaborators for NewTaskManager.
type TaskManagerOpts struct {
	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time
	// Location defines calendar days for stats. Defaults to UTC.
	Location *time.Location
	// Motivation picks encouragement messages. Defaults to the built-in pools.
	Motivation *MotivationPicker
}

type taskManager struct {
	store      TaskStore
	idGen      TaskIDGenerator
	events     EventLogger
	now        func() time.Time
	loc        *time.Location
	motivation *MotivationPicker
}

// NewTaskManager creates a TaskManager. events may be nil.
func NewTaskManager(store TaskStore, idGen TaskIDGenerator, events EventLogger, opts TaskManagerOpts) TaskManager {
	tm := &taskManager{
		store:      store,
		idGen:      idGen,
		events:     events,
		now:        opts.Now,
		loc:        opts.Location,
		motivation: opts.Motivation,
	}
	if tm.now == nil {
		tm.now = func() time.Time { return time.Now().UTC() }
	}
	if tm.loc == nil {
		tm.loc = time.UTC
	}
	if tm.motivation == nil {
		tm.motivation = NewMotivationPicker(DefaultMotivation(), nil)
	}
	return tm
}

// CreateTask captures a new task into the inbox.
func (tm *taskManager) CreateTask(in models.TaskInput) (*models.Task, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("creating task: %w", invalid("text", "must not be empty"))
	}
	if in.Status != "" && in.Status != models.StatusInbox {
		return nil, fmt.Errorf("creating task: %w", invalid("status", "new tasks start in the inbox"))
	}

	id, err := tm.idGen.GenerateTaskID()
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	task := models.Task{
		ID:            id,
		Text:          text,
		Status:        models.StatusInbox,
		IsKey:         in.IsKey,
		IsGolden:      in.IsGolden,
		Collaborators: NormalizeCollaborators(in.Collaborators),
		CreatedAt:     tm.now(),
		Version:       1,
	}
	if err := tm.store.Create(task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	tm.logEvent("task.created", map[string]any{
		"task_id": task.ID,
		"is_key":  task.IsKey,
	})
	return &task, nil
}

func (tm *taskManager) GetTask(id string) (*models.Task, error) {
	task, err := tm.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns tasks with the given status, or all tasks when status is
// empty, newest first.
func (tm *taskManager) ListTasks(status models.TaskStatus) ([]*models.Task, error) {
	var filter TaskFilter
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("listing tasks: %w", invalid("status", fmt.Sprintf("unknown status %q", status)))
		}
		filter.Status = []models.TaskStatus{status}
	}
	tasks, err := tm.store.List(filter)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	result := make([]*models.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

// SortTask applies a terminal disposition to a task and persists it.
//
// Decomposing into a project puts the first step on today's list as a child
// task. Re-decomposing rewrites a first step still waiting on today instead
// of adding another. Any other open steps of the task are released: they lose
// their parent, and those still on today go back to the inbox to be sorted on
// their own.
func (tm *taskManager) SortTask(id string, d models.Disposition) (*models.Task, error) {
	current, err := tm.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("sorting task %s: %w", id, err)
	}
	if current.Status == models.StatusDone {
		return nil, fmt.Errorf("sorting task %s: %w", id, ErrAlreadyCompleted)
	}
	now := tm.now()
	updated, err := ApplyDisposition(*current, d, now)
	if err != nil {
		return nil, fmt.Errorf("sorting task %s: %w", id, err)
	}

	if d.Kind == models.DispositionDiscard {
		tm.logSorted(id, d)
		return &updated, nil
	}

	steps, err := tm.openSteps(id)
	if err != nil {
		return nil, fmt.Errorf("sorting task %s: %w", id, err)
	}
	var step *firstStep
	if d.Kind == models.DispositionDecompose {
		if step, steps, err = tm.planFirstStep(updated, steps, now); err != nil {
			return nil, fmt.Errorf("sorting task %s: %w", id, err)
		}
	}

	saved, err := tm.store.Update(updated)
	if err != nil {
		return nil, fmt.Errorf("sorting task %s: %w", id, err)
	}

	if step != nil {
		if err := tm.writeFirstStep(*step); err != nil {
			return nil, fmt.Errorf("sorting task %s: %w", id, tm.restore(*current, saved.Version, err))
		}
	}
	if err := tm.releaseSteps(steps); err != nil {
		return nil, fmt.Errorf("sorting task %s: %w", id, err)
	}

	tm.logSorted(id, d)
	return saved, nil
}

// firstStep is the child task a decompose writes, new or rewritten.
type firstStep struct {
	task  models.Task
	isNew bool
}

// openSteps returns the unfinished child tasks of id, oldest first.
func (tm *taskManager) openSteps(id string) ([]models.Task, error) {
	children, err := tm.store.List(TaskFilter{ParentID: id})
	if err != nil {
		return nil, fmt.Errorf("listing steps: %w", err)
	}
	open := slices.DeleteFunc(children, func(t models.Task) bool {
		return t.Status == models.StatusDone
	})
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	return open, nil
}

// planFirstStep builds the first step for project before anything is
// written. It reuses the oldest step still on today and returns the steps
// left to release.
func (tm *taskManager) planFirstStep(project models.Task, steps []models.Task, now time.Time) (*firstStep, []models.Task, error) {
	for i, s := range steps {
		if s.Status != models.StatusToday {
			continue
		}
		reused := s.Clone()
		reused.Text = project.Project.FirstStep
		reused.IsKey = project.IsKey
		reused.IsGolden = project.IsGolden
		rest := slices.Delete(slices.Clone(steps), i, i+1)
		return &firstStep{task: reused}, rest, nil
	}

	id, err := tm.idGen.GenerateTaskID()
	if err != nil {
		return nil, nil, fmt.Errorf("creating first step: %w", err)
	}
	parent := project.ID
	sorted := now
	return &firstStep{
		task: models.Task{
			ID:        id,
			Text:      project.Project.FirstStep,
			Status:    models.StatusToday,
			IsKey:     project.IsKey,
			IsGolden:  project.IsGolden,
			ParentID:  &parent,
			CreatedAt: now,
			SortedAt:  &sorted,
			Version:   1,
		},
		isNew: true,
	}, steps, nil
}

func (tm *taskManager) writeFirstStep(step firstStep) error {
	if !step.isNew {
		if _, err := tm.store.Update(step.task); err != nil {
			return fmt.Errorf("updating first step %s: %w", step.task.ID, err)
		}
		return nil
	}
	if err := tm.store.Create(step.task); err != nil {
		return fmt.Errorf("creating first step: %w", err)
	}
	tm.logEvent("task.created", map[string]any{
		"task_id":   step.task.ID,
		"parent_id": *step.task.ParentID,
		"is_key":    step.task.IsKey,
	})
	return nil
}

// restore writes prev back over a task stored at version after a later step
// of the same sort failed. cause is returned, joined with any restore error.
func (tm *taskManager) restore(prev models.Task, version int, cause error) error {
	prev = prev.Clone()
	prev.Version = version
	if _, err := tm.store.Update(prev); err != nil {
		return errors.Join(cause, fmt.Errorf("restoring task %s: %w", prev.ID, err))
	}
	return cause
}

// releaseSteps detaches steps from their project. Steps still on today go
// back to the inbox.
func (tm *taskManager) releaseSteps(steps []models.Task) error {
	var errs []error
	for _, s := range steps {
		released := s.Clone()
		released.ParentID = nil
		if released.Status == models.StatusToday {
			released.Status = models.StatusInbox
			released.SortedAt = nil
		}
		if _, err := tm.store.Update(released); err != nil {
			errs = append(errs, fmt.Errorf("releasing step %s: %w", s.ID, err))
			continue
		}
		tm.logEvent("task.released", map[string]any{
			"task_id":   s.ID,
			"parent_id": *s.ParentID,
		})
	}
	return errors.Join(errs...)
}

// CompleteTask marks a task as done.
func (tm *taskManager) CompleteTask(id string) (*models.Task, error) {
	current, err := tm.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}
	completed, err := MarkCompleted(*current, tm.now())
	if err != nil {
		return nil, err
	}
	saved, err := tm.store.Update(completed)
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}
	tm.logEvent("task.completed", map[string]any{
		"task_id":    id,
		"old_status": string(current.Status),
		"is_key":     saved.IsKey,
	})
	return saved, nil
}

func (tm *taskManager) Stats() (models.Stats, error) {
	finished, err := tm.store.List(TaskFilter{Status: []models.TaskStatus{models.StatusDone}})
	if err != nil {
		return models.Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return ComputeStats(finished, tm.now(), tm.loc), nil
}

func (tm *taskManager) Progress() (int, error) {
	tasks, err := tm.store.List(TaskFilter{Status: []models.TaskStatus{
		models.StatusToday, models.StatusCalendar, models.StatusInbox,
	}})
	if err != nil {
		return 0, fmt.Errorf("computing progress: %w", err)
	}
	return ProgressOf(tasks), nil
}

func (tm *taskManager) Motivation() (string, error) {
	stats, err := tm.Stats()
	if err != nil {
		return "", err
	}
	return tm.motivation.Pick(stats), nil
}

func (tm *taskManager) logSorted(id string, d models.Disposition) {
	tm.logEvent("task.sorted", map[string]any{
		"task_id":     id,
		"disposition": string(d.Kind),
		"urgent":      d.Urgent,
	})
}

func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events == nil {
		return
	}
	_ = tm.events.LogEvent(eventType, data) // Event logging is best effort.
}

// NormalizeCollaborators trims identifiers, drops blanks and duplicates, and
// sorts the result. Collaborators are a set, so order carries no meaning.
func NormalizeCollaborators(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// IsNotFound reports whether err means a task or session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrSessionNotFound)
}
