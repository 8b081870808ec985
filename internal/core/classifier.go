package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// Answer is one reply to a wizard question. The set of implementations is
// closed: BoolAnswer, TextAnswer, DatetimeAnswer and ProjectAnswer.
type Answer interface {
	Kind() models.InputKind
	isAnswer()
}

// BoolAnswer answers a yes/no question.
type BoolAnswer bool

// TextAnswer answers a free-text question.
type TextAnswer string

// DatetimeAnswer answers the date/time question.
type DatetimeAnswer struct {
	At time.Time
}

// ProjectAnswer describes a multi-step task as a project.
type ProjectAnswer struct {
	Outcome   string
	Steps     []string
	FirstStep string
}

func (BoolAnswer) Kind() models.InputKind     { return models.InputBoolean }
func (TextAnswer) Kind() models.InputKind     { return models.InputText }
func (DatetimeAnswer) Kind() models.InputKind { return models.InputDatetime }
func (ProjectAnswer) Kind() models.InputKind  { return models.InputProject }

func (BoolAnswer) isAnswer()     {}
func (TextAnswer) isAnswer()     {}
func (DatetimeAnswer) isAnswer() {}
func (ProjectAnswer) isAnswer()  {}

// ResultKind distinguishes the two outcomes of a step.
type ResultKind string

const (
	ResultContinue ResultKind = "continue"
	ResultDone     ResultKind = "done"
)

// StepResult is either Continue (Next and Expects set) or Done
// (Disposition set), never both.
type StepResult struct {
	Kind        ResultKind          `json:"kind"`
	Next        models.SortState    `json:"next_state,omitempty"`
	Expects     models.InputKind    `json:"expected_input_kind,omitempty"`
	Disposition *models.Disposition `json:"disposition,omitempty"`
}

// Done reports whether the step reached a terminal disposition.
func (r StepResult) Done() bool {
	return r.Kind == ResultDone
}

func continueTo(next models.SortState) StepResult {
	return StepResult{Kind: ResultContinue, Next: next, Expects: questions[next].Expects}
}

func done(d models.Disposition) StepResult {
	return StepResult{Kind: ResultDone, Disposition: &d}
}

// Question describes one wizard state for rendering. Number is the position
// of the question along its path (1 for the first question).
type Question struct {
	State   models.SortState `json:"state"`
	Number  int              `json:"number"`
	Prompt  string           `json:"prompt"`
	Expects models.InputKind `json:"expects"`
}

// FirstState is where every sort session begins.
const FirstState = models.StateNeedsAction

var questions = map[models.SortState]Question{
	models.StateNeedsAction:    {models.StateNeedsAction, 1, "Does this require any action?", models.InputBoolean},
	models.StateUrgentThisWeek: {models.StateUrgentThisWeek, 2, "Is it urgent within this week?", models.InputBoolean},
	models.StateDoByMe:         {models.StateDoByMe, 3, "Must you do it personally?", models.InputBoolean},
	models.StateDelegateTo:     {models.StateDelegateTo, 4, "Who should it be delegated to?", models.InputText},
	models.StateOneStep:        {models.StateOneStep, 4, "Can it be completed in a single step?", models.InputBoolean},
	models.StateDefineProject:  {models.StateDefineProject, 5, "This is a project. Describe the outcome, the steps, and pick the first step.", models.InputProject},
	models.StateCanDoNow:       {models.StateCanDoNow, 5, "Can you do it right now, in a few minutes?", models.InputBoolean},
	models.StateHasDatetime:    {models.StateHasDatetime, 6, "Does it have a fixed date or time?", models.InputBoolean},
	models.StatePickDatetime:   {models.StatePickDatetime, 7, "When is it due?", models.InputDatetime},
}

// branch is one side of a yes/no question: either the next state or a
// terminal disposition.
type branch struct {
	next     models.SortState
	terminal func() models.Disposition
}

func goTo(s models.SortState) branch { return branch{next: s} }

func finish(d func() models.Disposition) branch { return branch{terminal: d} }

func (b branch) result() StepResult {
	if b.terminal != nil {
		return done(b.terminal())
	}
	return continueTo(b.next)
}

// yesNo holds the two branches of a boolean question.
type yesNo struct {
	no, yes branch
}

// booleanTransitions is the yes/no part of the decision tree. Urgency does
// not branch; it is carried onto the disposition by the session.
var booleanTransitions = map[models.SortState]yesNo{
	models.StateNeedsAction:    {no: finish(models.Discard), yes: goTo(models.StateUrgentThisWeek)},
	models.StateUrgentThisWeek: {no: goTo(models.StateDoByMe), yes: goTo(models.StateDoByMe)},
	models.StateDoByMe:         {no: goTo(models.StateDelegateTo), yes: goTo(models.StateOneStep)},
	models.StateOneStep:        {no: goTo(models.StateDefineProject), yes: goTo(models.StateCanDoNow)},
	models.StateCanDoNow:       {no: goTo(models.StateHasDatetime), yes: finish(models.DoToday)},
	models.StateHasDatetime:    {no: finish(models.DoToday), yes: goTo(models.StatePickDatetime)},
}

// entryTransitions are the data-entry states; each always terminates.
var entryTransitions = map[models.SortState]func(Answer) (models.Disposition, error){
	models.StateDelegateTo:    delegateFromAnswer,
	models.StateDefineProject: decomposeFromAnswer,
	models.StatePickDatetime:  scheduleFromAnswer,
}

// QuestionFor returns the question shown in state.
func QuestionFor(state models.SortState) (Question, error) {
	q, ok := questions[state]
	if !ok {
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	return q, nil
}

// Start returns the step result that opens a new session.
func Start() StepResult {
	return continueTo(FirstState)
}

// Advance applies one answer to the question in state. It is a pure function:
// the same inputs always produce the same result, and nothing is mutated.
func Advance(state models.SortState, answer Answer) (StepResult, error) {
	q, ok := questions[state]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	if answer == nil || answer.Kind() != q.Expects {
		got := models.InputKind("none")
		if answer != nil {
			got = answer.Kind()
		}
		return StepResult{}, fmt.Errorf("%w: %s expects a %s answer, got %s", ErrInvalidAnswerShape, state, q.Expects, got)
	}

	if node, ok := booleanTransitions[state]; ok {
		yes, ok := answer.(BoolAnswer)
		if !ok {
			return StepResult{}, fmt.Errorf("%w: %s expects a boolean answer", ErrInvalidAnswerShape, state)
		}
		if yes {
			return node.yes.result(), nil
		}
		return node.no.result(), nil
	}

	d, err := entryTransitions[state](answer)
	if err != nil {
		return StepResult{}, err
	}
	return done(d), nil
}

func delegateFromAnswer(a Answer) (models.Disposition, error) {
	text, ok := a.(TextAnswer)
	if !ok {
		return models.Disposition{}, fmt.Errorf("%w: expected text", ErrInvalidAnswerShape)
	}
	responsible := strings.TrimSpace(string(text))
	if responsible == "" {
		return models.Disposition{}, invalid("responsible", "must not be empty")
	}
	return models.Delegate(responsible), nil
}

func decomposeFromAnswer(a Answer) (models.Disposition, error) {
	p, ok := a.(ProjectAnswer)
	if !ok {
		return models.Disposition{}, fmt.Errorf("%w: expected a project description", ErrInvalidAnswerShape)
	}
	project, err := NormalizeProject(p.Outcome, p.Steps, p.FirstStep)
	if err != nil {
		return models.Disposition{}, err
	}
	return models.Decompose(project.Outcome, project.Steps, project.FirstStep), nil
}

func scheduleFromAnswer(a Answer) (models.Disposition, error) {
	dt, ok := a.(DatetimeAnswer)
	if !ok {
		return models.Disposition{}, fmt.Errorf("%w: expected a date/time", ErrInvalidAnswerShape)
	}
	if dt.At.IsZero() {
		return models.Disposition{}, invalid("due_datetime", "must be a valid timestamp")
	}
	return models.Schedule(dt.At), nil
}

// NormalizeProject trims the project fields, drops blank steps and checks
// that the first step is one of the remaining steps.
func NormalizeProject(outcome string, steps []string, firstStep string) (models.Project, error) {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return models.Project{}, invalid("outcome", "must not be empty")
	}
	var kept []string
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return models.Project{}, invalid("steps", "at least one non-empty step is required")
	}
	firstStep = strings.TrimSpace(firstStep)
	if firstStep == "" {
		return models.Project{}, invalid("first_step", "must be chosen from the steps")
	}
	if !slices.Contains(kept, firstStep) {
		return models.Project{}, invalid("first_step", fmt.Sprintf("%q is not one of the steps", firstStep))
	}
	return models.Project{Outcome: outcome, Steps: kept, FirstStep: firstStep}, nil
}

// datetimeLayouts are tried in order by ParseDatetime. Layouts without a zone
// are interpreted in the caller's location.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDatetime parses a user-supplied date/time. No check is made against
// the current time: past dates are accepted.
func ParseDatetime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("due_datetime", "must not be empty")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("due_datetime", fmt.Sprintf("%q is not a recognised date/time", s))
}

// ParseAnswer converts a transport payload into an Answer. A payload whose
// kind-specific field is missing is an invalid shape.
func ParseAnswer(p models.AnswerPayload, loc *time.Location) (Answer, error) {
	switch p.Kind {
	case models.InputBoolean:
		if p.Yes == nil {
			return nil, fmt.Errorf("%w: boolean answer without a value", ErrInvalidAnswerShape)
		}
		return BoolAnswer(*p.Yes), nil
	case models.InputText:
		if p.Text == nil {
			return nil, fmt.Errorf("%w: text answer without a value", ErrInvalidAnswerShape)
		}
		return TextAnswer(*p.Text), nil
	case models.InputDatetime:
		if p.Datetime == nil {
			return nil, fmt.Errorf("%w: datetime answer without a value", ErrInvalidAnswerShape)
		}
		at, err := ParseDatetime(*p.Datetime, loc)
		if err != nil {
			return nil, err
		}
		return DatetimeAnswer{At: at}, nil
	case models.InputProject:
		return ProjectAnswer{Outcome: p.Outcome, Steps: p.Steps, FirstStep: p.FirstStep}, nil
	}
	return nil, fmt.Errorf("%w: unknown answer kind %q", ErrInvalidAnswerShape, p.Kind)
}
