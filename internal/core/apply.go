package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// ApplyDisposition returns a copy of task updated for d. Fields belonging to
// the task's previous disposition are always cleared before the new ones are
// set, so re-sorting never leaves stale cross-category data behind.
//
// Discard leaves the task exactly as it was: the item stays where it is and
// is not deleted.
func ApplyDisposition(task models.Task, d models.Disposition, now time.Time) (models.Task, error) {
	if err := ValidateDisposition(d); err != nil {
		return task, err
	}
	out := task.Clone()
	if d.Kind == models.DispositionDiscard {
		return out, nil
	}

	clearDispositionFields(&out)
	status, _ := d.TargetStatus()
	out.Status = status

	switch d.Kind {
	case models.DispositionDelegate:
		r := strings.TrimSpace(d.Responsible)
		out.Responsible = &r
	case models.DispositionSchedule:
		due := *d.DueDatetime
		out.DueDatetime = &due
	case models.DispositionDecompose:
		p := *d.Project
		p.Steps = append([]string(nil), d.Project.Steps...)
		out.Project = &p
	}

	sorted := now
	out.SortedAt = &sorted
	return out, nil
}

// MarkCompleted returns a copy of task moved to done. The disposition fields
// are cleared because they only belong to their own status.
func MarkCompleted(task models.Task, now time.Time) (models.Task, error) {
	if task.Status == models.StatusDone {
		return task, fmt.Errorf("completing %s: %w", task.ID, ErrAlreadyCompleted)
	}
	out := task.Clone()
	clearDispositionFields(&out)
	out.Status = models.StatusDone
	completed := now
	out.CompletedAt = &completed
	return out, nil
}

func clearDispositionFields(t *models.Task) {
	t.DueDatetime = nil
	t.Responsible = nil
	t.Project = nil
	t.CompletedAt = nil
}

// ValidateDisposition checks that d is one well-formed variant: the fields
// required by its kind are present and no other variant's fields are set.
func ValidateDisposition(d models.Disposition) error {
	mismatch := func(reason string) error {
		return fmt.Errorf("%w: %s %s", ErrDispositionTaskMismatch, d.Kind, reason)
	}
	hasResponsible := d.Responsible != ""
	hasDue := d.DueDatetime != nil
	hasProject := d.Project != nil

	switch d.Kind {
	case models.DispositionDiscard, models.DispositionDoToday:
		if hasResponsible || hasDue || hasProject {
			return mismatch("carries fields of another disposition")
		}
	case models.DispositionDelegate:
		if strings.TrimSpace(d.Responsible) == "" {
			return mismatch("has no responsible")
		}
		if hasDue || hasProject {
			return mismatch("carries fields of another disposition")
		}
	case models.DispositionSchedule:
		if !hasDue || d.DueDatetime.IsZero() {
			return mismatch("has no due date/time")
		}
		if hasResponsible || hasProject {
			return mismatch("carries fields of another disposition")
		}
	case models.DispositionDecompose:
		if !hasProject {
			return mismatch("has no project")
		}
		if hasResponsible || hasDue {
			return mismatch("carries fields of another disposition")
		}
		if _, err := NormalizeProject(d.Project.Outcome, d.Project.Steps, d.Project.FirstStep); err != nil {
			return fmt.Errorf("%w: %w", ErrDispositionTaskMismatch, err)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrDispositionTaskMismatch, d.Kind)
	}
	return nil
}

// ValidateTask checks the structural invariants of a task.
func ValidateTask(t models.Task) error {
	if strings.TrimSpace(t.Text) == "" {
		return invalid("text", "must not be empty")
	}
	if !t.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", t.Status))
	}
	if (t.DueDatetime != nil) != (t.Status == models.StatusCalendar) {
		return invalid("due_datetime", "must be set exactly when status is calendar")
	}
	if (t.Responsible != nil) != (t.Status == models.StatusDelegated) {
		return invalid("responsible", "must be set exactly when status is delegated")
	}
	if (t.Project != nil) != (t.Status == models.StatusProject) {
		return invalid("project", "must be set exactly when status is project")
	}
	if t.Project != nil {
		if _, err := NormalizeProject(t.Project.Outcome, t.Project.Steps, t.Project.FirstStep); err != nil {
			return err
		}
	}
	if (t.CompletedAt != nil) != (t.Status == models.StatusDone) {
		return invalid("completed_at", "must be set exactly when status is done")
	}
	if t.Status == models.StatusInbox && t.SortedAt != nil {
		return invalid("sorted_at", "must be absent while the task is in the inbox")
	}
	return nil
}
