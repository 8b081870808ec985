package models

import "time"

// TaskStatus represents the list a task currently lives in.
type TaskStatus string

const (
	StatusInbox     TaskStatus = "inbox"
	StatusToday     TaskStatus = "today"
	StatusCalendar  TaskStatus = "calendar"
	StatusDelegated TaskStatus = "delegated"
	StatusProject   TaskStatus = "project"
	StatusDone      TaskStatus = "done"
)

// AllStatuses lists every status in display order.
var AllStatuses = []TaskStatus{
	StatusToday,
	StatusCalendar,
	StatusInbox,
	StatusDelegated,
	StatusProject,
	StatusDone,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusInbox, StatusToday, StatusCalendar, StatusDelegated, StatusProject, StatusDone:
		return true
	}
	return false
}

// Project is the decomposition of a multi-step task.
// FirstStep is always one of Steps.
type Project struct {
	Outcome   string   `yaml:"outcome" json:"outcome"`
	Steps     []string `yaml:"steps" json:"steps"`
	FirstStep string   `yaml:"first_step" json:"first_step"`
}

// Task is a single item captured into the inbox and later sorted.
//
// At most one of DueDatetime, Responsible and Project is set, and only when
// Status is calendar, delegated or project respectively. Nullable fields are
// serialised as explicit nulls.
type Task struct {
	ID            string     `yaml:"id" json:"id"`
	Text          string     `yaml:"text" json:"text"`
	Status        TaskStatus `yaml:"status" json:"status"`
	IsKey         bool       `yaml:"is_key" json:"is_key"`
	IsGolden      bool       `yaml:"is_golden" json:"is_golden"`
	Collaborators []string   `yaml:"collaborators" json:"collaborators"`
	DueDatetime   *time.Time `yaml:"due_datetime" json:"due_datetime"`
	Responsible   *string    `yaml:"responsible" json:"responsible"`
	Project       *Project   `yaml:"project" json:"project"`
	ParentID      *string    `yaml:"parent_id" json:"parent_id"`
	CreatedAt     time.Time  `yaml:"created_at" json:"created_at"`
	SortedAt      *time.Time `yaml:"sorted_at" json:"sorted_at"`
	CompletedAt   *time.Time `yaml:"completed_at" json:"completed_at"`
	Version       int        `yaml:"version" json:"version"`
}

// Clone returns a deep copy of the task so callers can mutate the copy
// without touching the original.
func (t Task) Clone() Task {
	c := t
	if t.Collaborators != nil {
		c.Collaborators = append([]string(nil), t.Collaborators...)
	}
	c.DueDatetime = cloneTime(t.DueDatetime)
	c.SortedAt = cloneTime(t.SortedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	if t.Responsible != nil {
		r := *t.Responsible
		c.Responsible = &r
	}
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	if t.Project != nil {
		p := *t.Project
		p.Steps = append([]string(nil), t.Project.Steps...)
		c.Project = &p
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TaskInput is the payload accepted when capturing a new task.
type TaskInput struct {
	Text          string     `yaml:"text" json:"text"`
	IsKey         bool       `yaml:"is_key" json:"is_key"`
	IsGolden      bool       `yaml:"is_golden" json:"is_golden"`
	Status        TaskStatus `yaml:"status,omitempty" json:"status,omitempty"`
	Collaborators []string   `yaml:"collaborators" json:"collaborators"`
}

// Stats holds completion counters for the current day and the rolling week.
type Stats struct {
	TodayDone    int `yaml:"today_done" json:"today_done"`
	TodayKeyDone int `yaml:"today_key_done" json:"today_key_done"`
	WeekDone     int `yaml:"week_done" json:"week_done"`
	WeekKeyDone  int `yaml:"week_key_done" json:"week_key_done"`
}
