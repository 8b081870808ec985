package models

import "time"

// SortState names one question of the sort wizard.
type SortState string

const (
	StateNeedsAction    SortState = "needs_action"
	StateUrgentThisWeek SortState = "urgent_this_week"
	StateDoByMe         SortState = "do_by_me"
	StateDelegateTo     SortState = "delegate_to"
	StateOneStep        SortState = "one_step"
	StateDefineProject  SortState = "define_project"
	StateCanDoNow       SortState = "can_do_now"
	StateHasDatetime    SortState = "has_datetime"
	StatePickDatetime   SortState = "pick_datetime"
)

// InputKind is the shape of answer a state expects.
type InputKind string

const (
	InputBoolean  InputKind = "boolean"
	InputText     InputKind = "text"
	InputDatetime InputKind = "datetime"
	InputProject  InputKind = "project"
)

// SortAnswers is the full set of answers collected by one pass through the
// wizard. Nil means "not answered". It is also the batch payload accepted by
// the one-shot sort endpoint.
type SortAnswers struct {
	NeedAction       *bool      `yaml:"need_action,omitempty" json:"need_action,omitempty"`
	UrgentThisWeek   *bool      `yaml:"urgent_this_week,omitempty" json:"urgent_this_week,omitempty"`
	DoByMe           *bool      `yaml:"do_by_me,omitempty" json:"do_by_me,omitempty"`
	OneStep          *bool      `yaml:"one_step,omitempty" json:"one_step,omitempty"`
	CanDoNow         *bool      `yaml:"can_do_now,omitempty" json:"can_do_now,omitempty"`
	HasDatetime      *bool      `yaml:"has_datetime,omitempty" json:"has_datetime,omitempty"`
	Datetime         *time.Time `yaml:"datetime,omitempty" json:"datetime,omitempty"`
	Responsible      *string    `yaml:"responsible,omitempty" json:"responsible,omitempty"`
	ProjectOutcome   *string    `yaml:"project_outcome,omitempty" json:"project_outcome,omitempty"`
	ProjectSteps     []string   `yaml:"project_steps,omitempty" json:"project_steps,omitempty"`
	ProjectFirstStep *string    `yaml:"project_first_step,omitempty" json:"project_first_step,omitempty"`
}

// SortSession is one in-progress run of the wizard against a single task.
// History lists the states already answered, oldest first; State is the
// question currently awaiting an answer. Disposition is set once the wizard
// has reached a terminal answer.
type SortSession struct {
	ID          string       `yaml:"id" json:"id"`
	TaskID      string       `yaml:"task_id" json:"task_id"`
	State       SortState    `yaml:"state" json:"state"`
	History     []SortState  `yaml:"history" json:"history"`
	Answers     SortAnswers  `yaml:"answers" json:"answers"`
	Disposition *Disposition `yaml:"disposition,omitempty" json:"disposition,omitempty"`
	StartedAt   time.Time    `yaml:"started_at" json:"started_at"`
	UpdatedAt   time.Time    `yaml:"updated_at" json:"updated_at"`
}

// Finished reports whether the session has produced a disposition.
func (s SortSession) Finished() bool {
	return s.Disposition != nil
}

// AnswerPayload is the transport form of a single wizard answer. Kind selects
// which of the other fields is read.
type AnswerPayload struct {
	Kind      InputKind `json:"kind" yaml:"kind"`
	Yes       *bool     `json:"yes,omitempty" yaml:"yes,omitempty"`
	Text      *string   `json:"text,omitempty" yaml:"text,omitempty"`
	Datetime  *string   `json:"datetime,omitempty" yaml:"datetime,omitempty"`
	Outcome   string    `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Steps     []string  `json:"steps,omitempty" yaml:"steps,omitempty"`
	FirstStep string    `json:"first_step,omitempty" yaml:"first_step,omitempty"`
}
