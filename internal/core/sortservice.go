package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// SessionStore persists sort sessions between requests. Get returns
// ErrSessionNotFound for unknown IDs.
type SessionStore interface {
	NewID() string
	Save(s models.SortSession) error
	Get(id string) (*models.SortSession, error)
	Delete(id string) error
	List() ([]models.SortSession, error)
}

// SortView is what a transport shows after each wizard step. Question is set
// while the session is running; Task is set once the disposition has been
// applied.
type SortView struct {
	Session  models.SortSession `json:"session"`
	Question *Question          `json:"question,omitempty"`
	Task     *models.Task       `json:"task,omitempty"`
}

// Finished reports whether the wizard has reached a disposition.
func (v *SortView) Finished() bool {
	return v.Session.Finished()
}

// SortService drives sort sessions held on the server side, for transports
// that cannot keep the wizard state themselves.
type SortService interface {
	Start(taskID string) (*SortView, error)
	Answer(sessionID string, a Answer) (*SortView, error)
	Back(sessionID string) (*SortView, error)
	Get(sessionID string) (*SortView, error)
	Abandon(sessionID string) error
	Prune() (int, error)
	SortWithAnswers(taskID string, answers models.SortAnswers) (*models.Task, error)
}

// Session retention applied by Prune.
const (
	FinishedSessionTTL = time.Hour
	IdleSessionTTL     = 24 * time.Hour
)

type sortService struct {
	tasks    TaskManager
	sessions SessionStore
	events   EventLogger
	now      func() time.Time

	// mu serialises read-modify-write cycles on sessions.
	mu sync.Mutex
}

// NewSortService creates a SortService. events may be nil; a nil now uses
// time.Now in UTC.
func NewSortService(tasks TaskManager, sessions SessionStore, events EventLogger, now func() time.Time) SortService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &sortService{tasks: tasks, sessions: sessions, events: events, now: now}
}

// Start opens a session on the first question for taskID.
func (s *sortService) Start(taskID string) (*SortView, error) {
	task, err := s.tasks.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("starting sort: %w", err)
	}
	if task.Status == models.StatusDone {
		return nil, fmt.Errorf("starting sort for %s: %w", taskID, ErrAlreadyCompleted)
	}

	s.mu.Lock()
	_, _ = s.prune() // best effort
	s.mu.Unlock()

	session := NewSession(s.sessions.NewID(), taskID, s.now())
	if err := s.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("starting sort: %w", err)
	}
	s.logEvent("sort.started", map[string]any{
		"session_id": session.ID,
		"task_id":    taskID,
	})
	return viewOf(session, nil)
}

// Answer applies a to the session's current question. Recoverable errors
// leave the stored session untouched. When the wizard terminates the
// disposition is applied to the task before the session is saved, so a
// failed write can be retried by answering again.
func (s *sortService) Answer(sessionID string, a Answer) (*SortView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("answering sort: %w", err)
	}
	next, res, err := AnswerSession(*session, a, s.now())
	if err != nil {
		return nil, err
	}

	var sorted *models.Task
	if res.Done() {
		sorted, err = s.tasks.SortTask(next.TaskID, *res.Disposition)
		if err != nil {
			return nil, fmt.Errorf("answering sort: %w", err)
		}
	}
	if err := s.sessions.Save(next); err != nil {
		return nil, fmt.Errorf("answering sort: %w", err)
	}
	return viewOf(next, sorted)
}

// Back re-enters the previous question.
func (s *sortService) Back(sessionID string) (*SortView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("going back: %w", err)
	}
	prev, err := BackSession(*session, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(prev); err != nil {
		return nil, fmt.Errorf("going back: %w", err)
	}
	return viewOf(prev, nil)
}

func (s *sortService) Get(sessionID string) (*SortView, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting sort session: %w", err)
	}
	var task *models.Task
	if session.Finished() {
		if task, err = s.tasks.GetTask(session.TaskID); err != nil {
			return nil, fmt.Errorf("getting sort session: %w", err)
		}
	}
	return viewOf(*session, task)
}

// Abandon discards the session. The task keeps whatever state it had.
func (s *sortService) Abandon(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("abandoning sort: %w", err)
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("abandoning sort: %w", err)
	}
	if !session.Finished() {
		s.logEvent("sort.abandoned", map[string]any{
			"session_id": sessionID,
			"task_id":    session.TaskID,
			"state":      string(session.State),
		})
	}
	return nil
}

// Prune removes sessions finished more than FinishedSessionTTL ago and
// abandons sessions left idle for longer than IdleSessionTTL. It returns the
// number of sessions removed.
func (s *sortService) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune()
}

func (s *sortService) prune() (int, error) {
	sessions, err := s.sessions.List()
	if err != nil {
		return 0, fmt.Errorf("pruning sort sessions: %w", err)
	}
	now := s.now()
	removed := 0
	var errs []error
	for _, session := range sessions {
		ttl := IdleSessionTTL
		if session.Finished() {
			ttl = FinishedSessionTTL
		}
		if now.Sub(session.UpdatedAt) < ttl {
			continue
		}
		if err := s.sessions.Delete(session.ID); err != nil {
			if !IsNotFound(err) {
				errs = append(errs, err)
			}
			continue
		}
		removed++
		if !session.Finished() {
			s.logEvent("sort.abandoned", map[string]any{
				"session_id": session.ID,
				"task_id":    session.TaskID,
				"state":      string(session.State),
				"reason":     "expired",
			})
		}
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("pruning sort sessions: %w", errors.Join(errs...))
	}
	return removed, nil
}

// SortWithAnswers classifies a complete answer bundle and applies the result
// in one call.
func (s *sortService) SortWithAnswers(taskID string, answers models.SortAnswers) (*models.Task, error) {
	d, err := Classify(answers)
	if err != nil {
		return nil, err
	}
	return s.tasks.SortTask(taskID, d)
}

func (s *sortService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}

func viewOf(session models.SortSession, task *models.Task) (*SortView, error) {
	v := &SortView{Session: session, Task: task}
	if session.Finished() {
		return v, nil
	}
	q, err := QuestionFor(session.State)
	if err != nil {
		return nil, err
	}
	v.Question = &q
	return v, nil
}
