package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// Event types written by gtd-brain.
const (
	EventTaskCreated   = "task.created"
	EventTaskSorted    = "task.sorted"
	EventTaskCompleted = "task.completed"
	EventTaskReleased  = "task.released"
	EventSortStarted   = "sort.started"
	EventSortAbandoned = "sort.abandoned"
)

// Event is one line of the event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter selects events on Read. Zero fields match everything.
type EventFilter struct {
	Since  *time.Time
	Until  *time.Time
	Types  []string
	TaskID string
}

func (f EventFilter) matches(e Event) bool {
	if f.Since != nil && e.Time.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Time.After(*f.Until) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	if f.TaskID != "" {
		if id, _ := e.Data["task_id"].(string); id != f.TaskID {
			return false
		}
	}
	return true
}

// EventLog appends and reads events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewJSONLEventLog opens (creating if needed) the JSONL file at path for
// appending.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

// Write appends event as a single line. Each line is written with one
// write call so concurrent processes do not interleave partial records.
func (l *jsonlEventLog) Write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read returns the events matching filter in file order. Malformed lines are
// skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if filter.matches(e) {
			events = append(events, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// eventMessages gives each known event type a human-readable message.
var eventMessages = map[string]string{
	EventTaskCreated:   "task captured",
	EventTaskSorted:    "task sorted",
	EventTaskCompleted: "task completed",
	EventSortStarted:   "sort session started",
	EventSortAbandoned: "sort session abandoned",
}

// Recorder turns (type, data) pairs into Events on an EventLog.
type Recorder struct {
	log EventLog
	now func() time.Time
}

// NewRecorder creates a Recorder. A nil now uses time.Now in UTC.
func NewRecorder(log EventLog, now func() time.Time) *Recorder {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Recorder{log: log, now: now}
}

// LogEvent writes an INFO event of the given type.
func (r *Recorder) LogEvent(eventType string, data map[string]any) error {
	msg, ok := eventMessages[eventType]
	if !ok {
		msg = eventType
	}
	return r.log.Write(Event{
		Time:    r.now(),
		Level:   "INFO",
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}
