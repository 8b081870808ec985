package observability

import (
	"fmt"
	"time"
)

// Metrics summarises sorting throughput over a time window.
type Metrics struct {
	TasksCreated          int            `json:"tasks_created"`
	FirstStepsCreated     int            `json:"first_steps_created"`
	TasksSorted           int            `json:"tasks_sorted"`
	SortedByDisposition   map[string]int `json:"sorted_by_disposition"`
	UrgentSorted          int            `json:"urgent_sorted"`
	TasksCompleted        int            `json:"tasks_completed"`
	KeyTasksCompleted     int            `json:"key_tasks_completed"`
	SortSessionsStarted   int            `json:"sort_sessions_started"`
	SortSessionsAbandoned int            `json:"sort_sessions_abandoned"`
	EventCount            int            `json:"event_count"`
	OldestEvent           *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent           *time.Time     `json:"newest_event,omitempty"`
}

// AbandonRate is the share of started sort sessions that were abandoned.
func (m *Metrics) AbandonRate() float64 {
	if m.SortSessionsStarted == 0 {
		return 0
	}
	return float64(m.SortSessionsAbandoned) / float64(m.SortSessionsStarted)
}

// MetricsCalculator derives Metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{SortedByDisposition: make(map[string]int)}
	m.EventCount = len(events)
	for i, e := range events {
		t := e.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch e.Type {
		case EventTaskCreated:
			m.TasksCreated++
			if parent, _ := e.Data["parent_id"].(string); parent != "" {
				m.FirstStepsCreated++
			}
		case EventTaskSorted:
			m.TasksSorted++
			if kind, ok := e.Data["disposition"].(string); ok {
				m.SortedByDisposition[kind]++
			}
			if urgent, _ := e.Data["urgent"].(bool); urgent {
				m.UrgentSorted++
			}
		case EventTaskCompleted:
			m.TasksCompleted++
			if key, _ := e.Data["is_key"].(bool); key {
				m.KeyTasksCompleted++
			}
		case EventSortStarted:
			m.SortSessionsStarted++
		case EventSortAbandoned:
			m.SortSessionsAbandoned++
		}
	}
	return m, nil
}

// ParseSince parses a window like "7d" or "24h" into the instant that far
// before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}
	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if num < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
