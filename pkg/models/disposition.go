package models

import "time"

// DispositionKind identifies the terminal outcome of the sort wizard.
type DispositionKind string

const (
	DispositionDiscard   DispositionKind = "discard"
	DispositionDelegate  DispositionKind = "delegate"
	DispositionDoToday   DispositionKind = "do_today"
	DispositionSchedule  DispositionKind = "schedule"
	DispositionDecompose DispositionKind = "decompose"
)

// Disposition is a tagged variant: Kind selects which of the remaining
// fields are meaningful. Urgent records the "urgent this week" answer and
// never changes the path through the wizard.
type Disposition struct {
	Kind        DispositionKind `yaml:"kind" json:"kind"`
	Urgent      bool            `yaml:"urgent" json:"urgent"`
	Responsible string          `yaml:"responsible,omitempty" json:"responsible,omitempty"`
	DueDatetime *time.Time      `yaml:"due_datetime,omitempty" json:"due_datetime,omitempty"`
	Project     *Project        `yaml:"project,omitempty" json:"project,omitempty"`
}

// Discard returns the disposition for items that need no action.
func Discard() Disposition {
	return Disposition{Kind: DispositionDiscard}
}

// Delegate returns the disposition handing a task to someone else.
func Delegate(responsible string) Disposition {
	return Disposition{Kind: DispositionDelegate, Responsible: responsible}
}

// DoToday returns the disposition placing a task on today's list.
func DoToday() Disposition {
	return Disposition{Kind: DispositionDoToday}
}

// Schedule returns the disposition placing a task on the calendar.
func Schedule(due time.Time) Disposition {
	return Disposition{Kind: DispositionSchedule, DueDatetime: &due}
}

// Decompose returns the disposition turning a task into a project.
func Decompose(outcome string, steps []string, firstStep string) Disposition {
	return Disposition{
		Kind: DispositionDecompose,
		Project: &Project{
			Outcome:   outcome,
			Steps:     append([]string(nil), steps...),
			FirstStep: firstStep,
		},
	}
}

// TargetStatus returns the task status a disposition moves a task to.
// Discard has no target and reports false.
func (d Disposition) TargetStatus() (TaskStatus, bool) {
	switch d.Kind {
	case DispositionDelegate:
		return StatusDelegated, true
	case DispositionDoToday:
		return StatusToday, true
	case DispositionSchedule:
		return StatusCalendar, true
	case DispositionDecompose:
		return StatusProject, true
	}
	return "", false
}
