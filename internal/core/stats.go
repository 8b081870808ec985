package core

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// ComputeStats counts completed tasks for the current day and the rolling
// week. The day starts at midnight of now in loc; the week window starts
// seven days before that.
func ComputeStats(tasks []models.Task, now time.Time, loc *time.Location) models.Stats {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	startToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	startWeek := startToday.AddDate(0, 0, -7)

	var s models.Stats
	for _, t := range tasks {
		if t.Status != models.StatusDone || t.CompletedAt == nil {
			continue
		}
		at := *t.CompletedAt
		if !at.Before(startWeek) {
			s.WeekDone++
			if t.IsKey {
				s.WeekKeyDone++
			}
		}
		if !at.Before(startToday) {
			s.TodayDone++
			if t.IsKey {
				s.TodayKeyDone++
			}
		}
	}
	return s
}

// InboxProgress is the share of captured items already sorted onto the today
// or calendar lists, as a rounded percentage. With nothing captured the inbox
// counts as fully cleared.
func InboxProgress(today, calendar, inbox int) int {
	sorted := today + calendar
	total := sorted + inbox
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(sorted) / float64(total)))
}

// ProgressOf computes InboxProgress from a task list.
func ProgressOf(tasks []models.Task) int {
	var today, calendar, inbox int
	for _, t := range tasks {
		switch t.Status {
		case models.StatusToday:
			today++
		case models.StatusCalendar:
			calendar++
		case models.StatusInbox:
			inbox++
		}
	}
	return InboxProgress(today, calendar, inbox)
}

// MotivationKind selects the tone of a motivation message.
type MotivationKind string

const (
	MotivationPraise MotivationKind = "praise"
	MotivationNudge  MotivationKind = "nudge"
)

// MotivationPicker tuning.
const (
	praiseThreshold = 5
	fallbackMessage = "Keep going, progress is already happening."
)

// DefaultMotivation returns the built-in message pools.
func DefaultMotivation() models.MotivationConfig {
	return models.MotivationConfig{
		Praise: []string{
			"Excellent! Every task is done!",
			"Excellent! Everything planned for today is done!",
			"Congratulations on a new record!",
			"Well done, keep it up!",
		},
		Nudge: []string{
			"Let's try to close one more task!",
			"Time to check whether your delegated tasks are done!",
			"You have almost cleared today's list, just a little left!",
			"Great! Just a bit more to reach the goal.",
		},
	}
}

// MotivationPicker chooses an encouraging message based on today's output.
type MotivationPicker struct {
	pools models.MotivationConfig
	rng   *rand.Rand
}

// NewMotivationPicker creates a picker over pools. A nil rng uses a
// randomly seeded source.
func NewMotivationPicker(pools models.MotivationConfig, rng *rand.Rand) *MotivationPicker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &MotivationPicker{pools: pools, rng: rng}
}

// Kind returns nudge when nothing is done today, praise from five
// completions on, and a coin flip in between.
func (p *MotivationPicker) Kind(s models.Stats) MotivationKind {
	switch {
	case s.TodayDone == 0:
		return MotivationNudge
	case s.TodayDone >= praiseThreshold:
		return MotivationPraise
	case p.rng.IntN(2) == 0:
		return MotivationPraise
	default:
		return MotivationNudge
	}
}

// Pick returns a message for s.
func (p *MotivationPicker) Pick(s models.Stats) string {
	pool := p.pools.Nudge
	if p.Kind(s) == MotivationPraise {
		pool = p.pools.Praise
	}
	if len(pool) == 0 {
		return fallbackMessage
	}
	return pool[p.rng.IntN(len(pool))]
}
