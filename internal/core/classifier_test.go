package core

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

func mustAdvance(t *testing.T, state models.SortState, a Answer) StepResult {
	t.Helper()
	res, err := Advance(state, a)
	if err != nil {
		t.Fatalf("Advance(%s): unexpected error: %v", state, err)
	}
	return res
}

// walk answers the questions in order starting at FirstState and returns the
// final step result.
func walk(t *testing.T, answers ...Answer) StepResult {
	t.Helper()
	state := FirstState
	var res StepResult
	for i, a := range answers {
		res = mustAdvance(t, state, a)
		if res.Done() {
			if i != len(answers)-1 {
				t.Fatalf("wizard finished after %d of %d answers", i+1, len(answers))
			}
			return res
		}
		state = res.Next
	}
	return res
}

func TestStart_OpensOnNeedsAction(t *testing.T) {
	res := Start()
	if res.Kind != ResultContinue || res.Next != models.StateNeedsAction || res.Expects != models.InputBoolean {
		t.Errorf("Start() = %+v", res)
	}
}

func TestAdvance_TransitionTable(t *testing.T) {
	tests := []struct {
		state   models.SortState
		answer  bool
		next    models.SortState
		expects models.InputKind
		done    models.DispositionKind
	}{
		{models.StateNeedsAction, false, "", "", models.DispositionDiscard},
		{models.StateNeedsAction, true, models.StateUrgentThisWeek, models.InputBoolean, ""},
		{models.StateUrgentThisWeek, false, models.StateDoByMe, models.InputBoolean, ""},
		{models.StateUrgentThisWeek, true, models.StateDoByMe, models.InputBoolean, ""},
		{models.StateDoByMe, false, models.StateDelegateTo, models.InputText, ""},
		{models.StateDoByMe, true, models.StateOneStep, models.InputBoolean, ""},
		{models.StateOneStep, false, models.StateDefineProject, models.InputProject, ""},
		{models.StateOneStep, true, models.StateCanDoNow, models.InputBoolean, ""},
		{models.StateCanDoNow, false, models.StateHasDatetime, models.InputBoolean, ""},
		{models.StateCanDoNow, true, "", "", models.DispositionDoToday},
		{models.StateHasDatetime, false, "", "", models.DispositionDoToday},
		{models.StateHasDatetime, true, models.StatePickDatetime, models.InputDatetime, ""},
	}
	for _, tt := range tests {
		res := mustAdvance(t, tt.state, BoolAnswer(tt.answer))
		if tt.done != "" {
			if !res.Done() || res.Disposition == nil || res.Disposition.Kind != tt.done {
				t.Errorf("%s=%v: got %+v, want done(%s)", tt.state, tt.answer, res, tt.done)
			}
			if res.Next != "" {
				t.Errorf("%s=%v: done result carries next state %q", tt.state, tt.answer, res.Next)
			}
			continue
		}
		if res.Done() || res.Disposition != nil {
			t.Errorf("%s=%v: got done, want continue to %s", tt.state, tt.answer, tt.next)
			continue
		}
		if res.Next != tt.next || res.Expects != tt.expects {
			t.Errorf("%s=%v: got %s/%s, want %s/%s", tt.state, tt.answer, res.Next, res.Expects, tt.next, tt.expects)
		}
	}
}

func TestScenarioA_BuyMilk_DoToday(t *testing.T) {
	res := walk(t, BoolAnswer(true), BoolAnswer(true), BoolAnswer(true), BoolAnswer(true), BoolAnswer(true))
	if !res.Done() || res.Disposition.Kind != models.DispositionDoToday {
		t.Fatalf("got %+v, want DoToday", res)
	}
}

func TestScenarioB_OrganizeConference_Decompose(t *testing.T) {
	res := walk(t,
		BoolAnswer(true), BoolAnswer(true), BoolAnswer(true), BoolAnswer(false),
		ProjectAnswer{
			Outcome:   "Successful conference",
			Steps:     []string{"Book venue", "Invite speakers"},
			FirstStep: "Book venue",
		},
	)
	if !res.Done() || res.Disposition.Kind != models.DispositionDecompose {
		t.Fatalf("got %+v, want Decompose", res)
	}
	p := res.Disposition.Project
	if p.Outcome != "Successful conference" || p.FirstStep != "Book venue" {
		t.Errorf("project = %+v", p)
	}
	if !slices.Equal(p.Steps, []string{"Book venue", "Invite speakers"}) {
		t.Errorf("steps = %v", p.Steps)
	}
}

func TestScenarioC_Delegate(t *testing.T) {
	res := walk(t, BoolAnswer(true), BoolAnswer(true), BoolAnswer(false), TextAnswer("alice"))
	if !res.Done() || res.Disposition.Kind != models.DispositionDelegate {
		t.Fatalf("got %+v, want Delegate", res)
	}
	if res.Disposition.Responsible != "alice" {
		t.Errorf("responsible = %q, want alice", res.Disposition.Responsible)
	}
}

func TestAdvance_Schedule(t *testing.T) {
	at := time.Date(2020, 1, 2, 9, 30, 0, 0, time.UTC)
	res := walk(t,
		BoolAnswer(true), BoolAnswer(false), BoolAnswer(true), BoolAnswer(true),
		BoolAnswer(false), BoolAnswer(true), DatetimeAnswer{At: at},
	)
	if !res.Done() || res.Disposition.Kind != models.DispositionSchedule {
		t.Fatalf("got %+v, want Schedule", res)
	}
	if !res.Disposition.DueDatetime.Equal(at) {
		t.Errorf("due = %v, want %v (past dates are accepted)", res.Disposition.DueDatetime, at)
	}
}

func TestAdvance_EmptyResponsible(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := Advance(models.StateDelegateTo, TextAnswer(text))
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "responsible" {
			t.Errorf("responsible %q: got %v, want ValidationError{responsible}", text, err)
		}
	}
}

func TestAdvance_ResponsibleIsTrimmed(t *testing.T) {
	res := mustAdvance(t, models.StateDelegateTo, TextAnswer("  @bob  "))
	if res.Disposition.Responsible != "@bob" {
		t.Errorf("responsible = %q, want @bob", res.Disposition.Responsible)
	}
}

func TestAdvance_ProjectValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    ProjectAnswer
		field string
	}{
		{"empty outcome", ProjectAnswer{Outcome: " ", Steps: []string{"a"}, FirstStep: "a"}, "outcome"},
		{"no steps", ProjectAnswer{Outcome: "o", FirstStep: "a"}, "steps"},
		{"blank steps", ProjectAnswer{Outcome: "o", Steps: []string{"", "  "}, FirstStep: "a"}, "steps"},
		{"first step missing", ProjectAnswer{Outcome: "o", Steps: []string{"a", "b"}}, "first_step"},
		{"first step not in steps", ProjectAnswer{Outcome: "o", Steps: []string{"a", "b"}, FirstStep: "c"}, "first_step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Advance(models.StateDefineProject, tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("got %v, want ValidationError{%s}", err, tt.field)
			}
			if res.Done() {
				t.Error("invalid project must not reach done")
			}
		})
	}
}

func TestAdvance_ProjectNormalisesSteps(t *testing.T) {
	res := mustAdvance(t, models.StateDefineProject, ProjectAnswer{
		Outcome:   " Launch ",
		Steps:     []string{" Draft plan ", "", "Review"},
		FirstStep: "Draft plan",
	})
	p := res.Disposition.Project
	if p.Outcome != "Launch" || !slices.Equal(p.Steps, []string{"Draft plan", "Review"}) || p.FirstStep != "Draft plan" {
		t.Errorf("project = %+v", p)
	}
}

func TestAdvance_ZeroDatetime(t *testing.T) {
	_, err := Advance(models.StatePickDatetime, DatetimeAnswer{})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "due_datetime" {
		t.Fatalf("got %v, want ValidationError{due_datetime}", err)
	}
}

func TestAdvance_InvalidAnswerShape(t *testing.T) {
	tests := []struct {
		state  models.SortState
		answer Answer
	}{
		{models.StateNeedsAction, TextAnswer("yes")},
		{models.StateNeedsAction, nil},
		{models.StateDelegateTo, BoolAnswer(true)},
		{models.StateDefineProject, TextAnswer("a project")},
		{models.StatePickDatetime, BoolAnswer(true)},
		{models.StateCanDoNow, DatetimeAnswer{At: time.Now()}},
	}
	for _, tt := range tests {
		_, err := Advance(tt.state, tt.answer)
		if !errors.Is(err, ErrInvalidAnswerShape) {
			t.Errorf("%s with %T: got %v, want ErrInvalidAnswerShape", tt.state, tt.answer, err)
		}
	}
}

func TestAdvance_UnknownState(t *testing.T) {
	_, err := Advance("q99", BoolAnswer(true))
	if !errors.Is(err, ErrUnknownState) {
		t.Fatalf("got %v, want ErrUnknownState", err)
	}
	if _, err := QuestionFor("q99"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("QuestionFor: got %v, want ErrUnknownState", err)
	}
}

func TestQuestionFor_EveryState(t *testing.T) {
	for state := range questions {
		q, err := QuestionFor(state)
		if err != nil {
			t.Fatalf("QuestionFor(%s): %v", state, err)
		}
		if q.State != state || q.Prompt == "" || q.Number < 1 || q.Number > 7 {
			t.Errorf("QuestionFor(%s) = %+v", state, q)
		}
	}
}

func TestParseDatetime(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00+02:00", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00", time.Date(2024, 5, 1, 10, 0, 0, 0, moscow)},
		{"2024-05-01 10:00", time.Date(2024, 5, 1, 10, 0, 0, 0, moscow)},
		{" 2024-05-01 ", time.Date(2024, 5, 1, 0, 0, 0, 0, moscow)},
	}
	for _, tt := range tests {
		got, err := ParseDatetime(tt.in, moscow)
		if err != nil {
			t.Errorf("ParseDatetime(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDatetime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "tomorrow", "2024-13-01", "01/05/2024"} {
		_, err := ParseDatetime(bad, nil)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "due_datetime" {
			t.Errorf("ParseDatetime(%q): got %v, want ValidationError{due_datetime}", bad, err)
		}
	}
}

func TestParseAnswer(t *testing.T) {
	a, err := ParseAnswer(models.AnswerPayload{Kind: models.InputBoolean, Yes: boolPtr(true)}, nil)
	if err != nil || a != BoolAnswer(true) {
		t.Errorf("boolean: got %v, %v", a, err)
	}
	a, err = ParseAnswer(models.AnswerPayload{Kind: models.InputText, Text: strPtr("carol")}, nil)
	if err != nil || a != TextAnswer("carol") {
		t.Errorf("text: got %v, %v", a, err)
	}
	a, err = ParseAnswer(models.AnswerPayload{Kind: models.InputDatetime, Datetime: strPtr("2024-01-01")}, time.UTC)
	if err != nil {
		t.Fatalf("datetime: %v", err)
	}
	if dt, ok := a.(DatetimeAnswer); !ok || !dt.At.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("datetime: got %#v", a)
	}
	a, err = ParseAnswer(models.AnswerPayload{Kind: models.InputProject, Outcome: "o", Steps: []string{"s"}, FirstStep: "s"}, nil)
	if err != nil || a.Kind() != models.InputProject {
		t.Errorf("project: got %v, %v", a, err)
	}

	for _, p := range []models.AnswerPayload{
		{Kind: models.InputBoolean},
		{Kind: models.InputText},
		{Kind: models.InputDatetime},
		{Kind: "emoji"},
	} {
		if _, err := ParseAnswer(p, nil); !errors.Is(err, ErrInvalidAnswerShape) {
			t.Errorf("ParseAnswer(%+v): got %v, want ErrInvalidAnswerShape", p, err)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(invalid("steps", "x")) {
		t.Error("ValidationError should be recoverable")
	}
	if !IsRecoverable(ErrInvalidAnswerShape) {
		t.Error("ErrInvalidAnswerShape should be recoverable")
	}
	if IsRecoverable(ErrUnknownState) || IsRecoverable(ErrDispositionTaskMismatch) {
		t.Error("fatal errors must not be recoverable")
	}
}
