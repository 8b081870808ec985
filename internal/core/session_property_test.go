package core

import (
	"testing"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
	"pgregory.net/rapid"
)

// Feature: gtd-brain, Property: Back then re-answer is a no-op
// Stepping back from any running session and giving the same answer again
// lands on the same question with the same history.
func TestProperty_BackThenReanswerRestoresSession(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewSession("S", "T", time.Unix(0, 0))
		var given []Answer
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		for i := 0; i < n && !s.Finished(); i++ {
			a := genAnswerFor(rt, s.State, string(s.State))
			next, _, err := AnswerSession(s, a, time.Unix(int64(i+1), 0))
			if err != nil {
				rt.Fatalf("AnswerSession: %v", err)
			}
			if next.Finished() {
				break
			}
			s = next
			given = append(given, a)
		}
		if len(given) == 0 {
			return
		}

		back, err := BackSession(s, time.Unix(100, 0))
		if err != nil {
			rt.Fatalf("BackSession: %v", err)
		}
		if len(back.History) != len(s.History)-1 {
			rt.Fatalf("history %d after back, want %d", len(back.History), len(s.History)-1)
		}

		again, _, err := AnswerSession(back, given[len(given)-1], time.Unix(101, 0))
		if err != nil {
			rt.Fatalf("re-answer: %v", err)
		}
		if again.State != s.State || len(again.History) != len(s.History) {
			rt.Fatalf("re-answer landed on %s %v, want %s %v", again.State, again.History, s.State, s.History)
		}
	})
}

// Feature: gtd-brain, Property: Sessions are independent
// Interleaving two sessions gives the same dispositions as running them one
// after the other.
func TestProperty_SessionsIndependent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := func(label string) models.SortAnswers {
			at := time.Unix(rapid.Int64Range(1, 1<<31).Draw(rt, label+"_at"), 0).UTC()
			return models.SortAnswers{
				NeedAction:       boolPtr(rapid.Bool().Draw(rt, label+"_need")),
				UrgentThisWeek:   boolPtr(rapid.Bool().Draw(rt, label+"_urgent")),
				DoByMe:           boolPtr(rapid.Bool().Draw(rt, label+"_me")),
				OneStep:          boolPtr(rapid.Bool().Draw(rt, label+"_one")),
				CanDoNow:         boolPtr(rapid.Bool().Draw(rt, label+"_now")),
				HasDatetime:      boolPtr(rapid.Bool().Draw(rt, label+"_dated")),
				Datetime:         &at,
				Responsible:      strPtr("someone"),
				ProjectOutcome:   strPtr("goal"),
				ProjectSteps:     []string{"one", "two"},
				ProjectFirstStep: strPtr("two"),
			}
		}
		a, b := gen("a"), gen("b")

		wantA, errA := Classify(a)
		wantB, errB := Classify(b)
		if errA != nil || errB != nil {
			rt.Fatalf("Classify: %v %v", errA, errB)
		}

		sa, sb := NewSession("A", "TA", time.Unix(0, 0)), NewSession("B", "TB", time.Unix(0, 0))
		for range maxDepth {
			for _, p := range []struct {
				s *models.SortSession
				b models.SortAnswers
			}{{&sa, a}, {&sb, b}} {
				if p.s.Finished() {
					continue
				}
				ans, err := answerFromBundle(p.s.State, p.b)
				if err != nil {
					rt.Fatalf("answerFromBundle: %v", err)
				}
				next, _, err := AnswerSession(*p.s, ans, time.Unix(1, 0))
				if err != nil {
					rt.Fatalf("AnswerSession: %v", err)
				}
				*p.s = next
			}
		}
		if !sa.Finished() || !sb.Finished() {
			rt.Fatal("sessions did not finish")
		}
		if sa.Disposition.Kind != wantA.Kind || sb.Disposition.Kind != wantB.Kind {
			rt.Fatalf("interleaved %s/%s, sequential %s/%s", sa.Disposition.Kind, sb.Disposition.Kind, wantA.Kind, wantB.Kind)
		}
	})
}
