package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionInboxTooLarge     = "inbox_too_large"
	ConditionInboxStale        = "inbox_stale"
	ConditionCalendarOverdue   = "calendar_overdue"
	ConditionDelegatedFollowUp = "delegated_follow_up"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// DefaultAlertConfig returns the default alert thresholds.
func DefaultAlertConfig() models.AlertConfig {
	return models.AlertConfig{
		MaxInbox:              20,
		StaleInboxDays:        3,
		DelegatedFollowUpDays: 7,
	}
}

// TaskLister is the read access the alert engine needs. The core
// TaskManager satisfies it.
type TaskLister interface {
	ListTasks(status models.TaskStatus) ([]*models.Task, error)
}

// AlertEngine evaluates alert conditions against the current task lists.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	tasks      TaskLister
	thresholds models.AlertConfig
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine. A zero threshold disables its
// condition. A nil now uses time.Now in UTC.
func NewAlertEngine(tasks TaskLister, thresholds models.AlertConfig, now func() time.Time) AlertEngine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &alertEngine{tasks: tasks, thresholds: thresholds, now: now}
}

// Evaluate checks every condition and returns the triggered alerts, inbox
// alerts first.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()

	inbox, err := ae.tasks.ListTasks(models.StatusInbox)
	if err != nil {
		return nil, fmt.Errorf("checking inbox: %w", err)
	}
	calendar, err := ae.tasks.ListTasks(models.StatusCalendar)
	if err != nil {
		return nil, fmt.Errorf("checking calendar: %w", err)
	}
	delegated, err := ae.tasks.ListTasks(models.StatusDelegated)
	if err != nil {
		return nil, fmt.Errorf("checking delegated tasks: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkInboxSize(inbox, now)...)
	alerts = append(alerts, ae.checkStaleInbox(inbox, now)...)
	alerts = append(alerts, checkOverdue(calendar, now)...)
	alerts = append(alerts, ae.checkDelegated(delegated, now)...)
	return alerts, nil
}

func (ae *alertEngine) checkInboxSize(inbox []*models.Task, now time.Time) []Alert {
	limit := ae.thresholds.MaxInbox
	if limit <= 0 || len(inbox) <= limit {
		return nil
	}
	return []Alert{{
		ID:          "inbox-size",
		Condition:   ConditionInboxTooLarge,
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("inbox has %d unsorted items, exceeding the maximum of %d", len(inbox), limit),
		TriggeredAt: now,
	}}
}

func (ae *alertEngine) checkStaleInbox(inbox []*models.Task, now time.Time) []Alert {
	days := ae.thresholds.StaleInboxDays
	if days <= 0 {
		return nil
	}
	threshold := time.Duration(days) * 24 * time.Hour
	var alerts []Alert
	for _, t := range inbox {
		if now.Sub(t.CreatedAt) > threshold {
			alerts = append(alerts, Alert{
				ID:          "stale-" + t.ID,
				Condition:   ConditionInboxStale,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s has waited in the inbox for more than %d days", t.ID, days),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

func checkOverdue(calendar []*models.Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range calendar {
		if t.DueDatetime == nil || !t.DueDatetime.Before(now) {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "overdue-" + t.ID,
			Condition:   ConditionCalendarOverdue,
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("task %s was due %s", t.ID, t.DueDatetime.UTC().Format("2006-01-02 15:04 UTC")),
			TriggeredAt: now,
		})
	}
	return alerts
}

func (ae *alertEngine) checkDelegated(delegated []*models.Task, now time.Time) []Alert {
	days := ae.thresholds.DelegatedFollowUpDays
	if days <= 0 {
		return nil
	}
	threshold := time.Duration(days) * 24 * time.Hour
	var alerts []Alert
	for _, t := range delegated {
		if t.SortedAt == nil || now.Sub(*t.SortedAt) <= threshold {
			continue
		}
		who := "someone"
		if t.Responsible != nil {
			who = *t.Responsible
		}
		alerts = append(alerts, Alert{
			ID:          "follow-up-" + t.ID,
			Condition:   ConditionDelegatedFollowUp,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("task %s was delegated to %s more than %d days ago; check whether it is done", t.ID, who, days),
			TriggeredAt: now,
		})
	}
	return alerts
}
