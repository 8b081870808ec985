package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// maxDepth bounds any walk through the wizard; the longest path has seven
// answers.
const maxDepth = 16

// NewSession returns a session positioned on the first question.
func NewSession(id, taskID string, now time.Time) models.SortSession {
	return models.SortSession{
		ID:        id,
		TaskID:    taskID,
		State:     FirstState,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// AnswerSession applies one answer to the session's current question and
// returns the updated session. The input session is never modified; on error
// it is returned as is so the caller can re-prompt.
func AnswerSession(s models.SortSession, a Answer, now time.Time) (models.SortSession, StepResult, error) {
	if s.Finished() {
		return s, StepResult{}, ErrSessionFinished
	}
	res, err := Advance(s.State, a)
	if err != nil {
		return s, StepResult{}, err
	}

	next := cloneSession(s)
	recordAnswer(&next.Answers, s.State, a)
	next.History = append(next.History, s.State)
	next.UpdatedAt = now

	if res.Done() {
		d := *res.Disposition
		if next.Answers.UrgentThisWeek != nil {
			d.Urgent = *next.Answers.UrgentThisWeek
		}
		next.Disposition = &d
		res.Disposition = &d
		return next, res, nil
	}
	next.State = res.Next
	return next, res, nil
}

// BackSession re-enters the previously answered question. That answer and
// everything after it is discarded; nothing else about the session changes.
func BackSession(s models.SortSession, now time.Time) (models.SortSession, error) {
	if len(s.History) == 0 {
		return s, ErrNoPriorState
	}
	return RewindSession(s, s.History[len(s.History)-1], now)
}

// RewindSession re-enters target, which must be a question already answered
// in this session, dropping the answers from target onwards.
func RewindSession(s models.SortSession, target models.SortState, now time.Time) (models.SortSession, error) {
	if s.Finished() {
		return s, ErrSessionFinished
	}
	idx := slices.Index(s.History, target)
	if idx < 0 {
		return s, fmt.Errorf("rewinding to %s: %w", target, ErrNoPriorState)
	}

	next := cloneSession(s)
	next.History = next.History[:idx]
	next.State = target
	next.Answers = models.SortAnswers{}
	for _, st := range next.History {
		copyAnswer(&next.Answers, s.Answers, st)
	}
	next.UpdatedAt = now
	return next, nil
}

// Classify replays a complete answer bundle through the wizard and returns
// the disposition it reaches. A question on the path without an answer in
// the bundle yields a ValidationError naming the missing field.
func Classify(answers models.SortAnswers) (models.Disposition, error) {
	s := NewSession("", "", time.Time{})
	for range maxDepth {
		a, err := answerFromBundle(s.State, answers)
		if err != nil {
			return models.Disposition{}, err
		}
		var res StepResult
		s, res, err = AnswerSession(s, a, time.Time{})
		if err != nil {
			return models.Disposition{}, err
		}
		if res.Done() {
			return *res.Disposition, nil
		}
	}
	return models.Disposition{}, fmt.Errorf("%w: wizard did not terminate", ErrUnknownState)
}

func answerFromBundle(state models.SortState, b models.SortAnswers) (Answer, error) {
	boolean := func(v *bool, field string) (Answer, error) {
		if v == nil {
			return nil, invalid(field, "answer required")
		}
		return BoolAnswer(*v), nil
	}
	switch state {
	case models.StateNeedsAction:
		return boolean(b.NeedAction, "need_action")
	case models.StateUrgentThisWeek:
		return boolean(b.UrgentThisWeek, "urgent_this_week")
	case models.StateDoByMe:
		return boolean(b.DoByMe, "do_by_me")
	case models.StateOneStep:
		return boolean(b.OneStep, "one_step")
	case models.StateCanDoNow:
		return boolean(b.CanDoNow, "can_do_now")
	case models.StateHasDatetime:
		return boolean(b.HasDatetime, "has_datetime")
	case models.StateDelegateTo:
		if b.Responsible == nil {
			return nil, invalid("responsible", "answer required")
		}
		return TextAnswer(*b.Responsible), nil
	case models.StatePickDatetime:
		if b.Datetime == nil {
			return nil, invalid("due_datetime", "answer required")
		}
		return DatetimeAnswer{At: *b.Datetime}, nil
	case models.StateDefineProject:
		p := ProjectAnswer{Steps: b.ProjectSteps}
		if b.ProjectOutcome != nil {
			p.Outcome = *b.ProjectOutcome
		}
		if b.ProjectFirstStep != nil {
			p.FirstStep = *b.ProjectFirstStep
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
}

func recordAnswer(dst *models.SortAnswers, state models.SortState, a Answer) {
	switch v := a.(type) {
	case BoolAnswer:
		b := bool(v)
		switch state {
		case models.StateNeedsAction:
			dst.NeedAction = &b
		case models.StateUrgentThisWeek:
			dst.UrgentThisWeek = &b
		case models.StateDoByMe:
			dst.DoByMe = &b
		case models.StateOneStep:
			dst.OneStep = &b
		case models.StateCanDoNow:
			dst.CanDoNow = &b
		case models.StateHasDatetime:
			dst.HasDatetime = &b
		}
	case TextAnswer:
		s := string(v)
		dst.Responsible = &s
	case DatetimeAnswer:
		at := v.At
		dst.Datetime = &at
	case ProjectAnswer:
		outcome, first := v.Outcome, v.FirstStep
		dst.ProjectOutcome = &outcome
		dst.ProjectSteps = append([]string(nil), v.Steps...)
		dst.ProjectFirstStep = &first
	}
}

// copyAnswer copies the answer belonging to state from src into dst.
func copyAnswer(dst *models.SortAnswers, src models.SortAnswers, state models.SortState) {
	switch state {
	case models.StateNeedsAction:
		dst.NeedAction = src.NeedAction
	case models.StateUrgentThisWeek:
		dst.UrgentThisWeek = src.UrgentThisWeek
	case models.StateDoByMe:
		dst.DoByMe = src.DoByMe
	case models.StateOneStep:
		dst.OneStep = src.OneStep
	case models.StateCanDoNow:
		dst.CanDoNow = src.CanDoNow
	case models.StateHasDatetime:
		dst.HasDatetime = src.HasDatetime
	case models.StateDelegateTo:
		dst.Responsible = src.Responsible
	case models.StatePickDatetime:
		dst.Datetime = src.Datetime
	case models.StateDefineProject:
		dst.ProjectOutcome = src.ProjectOutcome
		dst.ProjectSteps = src.ProjectSteps
		dst.ProjectFirstStep = src.ProjectFirstStep
	}
}

func cloneSession(s models.SortSession) models.SortSession {
	c := s
	c.History = append([]models.SortState(nil), s.History...)
	c.Answers = models.SortAnswers{}
	for _, st := range s.History {
		copyAnswer(&c.Answers, s.Answers, st)
	}
	if s.Disposition != nil {
		d := *s.Disposition
		c.Disposition = &d
	}
	return c
}
