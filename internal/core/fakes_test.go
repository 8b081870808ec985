package core

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// inMemoryTaskStore implements TaskStore for testing, including the
// optimistic version check.
type inMemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]models.Task
}

func newInMemoryTaskStore() *inMemoryTaskStore {
	return &inMemoryTaskStore{tasks: make(map[string]models.Task)}
}

func (s *inMemoryTaskStore) Create(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *inMemoryTaskStore) Get(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (s *inMemoryTaskStore) Update(task models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if existing.Version != task.Version {
		return nil, ErrVersionConflict
	}
	stored := task.Clone()
	stored.Version++
	s.tasks[task.ID] = stored
	c := stored.Clone()
	return &c, nil
}

func (s *inMemoryTaskStore) List(filter TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, t.Status) {
			continue
		}
		if filter.ParentID != "" && (t.ParentID == nil || *t.ParentID != filter.ParentID) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// put stores a task as is, bypassing the manager.
func (s *inMemoryTaskStore) put(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
}

// seqIDGen hands out T-1, T-2, ...
type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) GenerateTaskID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("T-%d", g.n), nil
}

type loggedEvent struct {
	Type string
	Data map[string]any
}

// recordingEvents implements EventLogger by keeping events in memory.
type recordingEvents struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// inMemorySessionStore implements SessionStore for testing.
type inMemorySessionStore struct {
	mu       sync.Mutex
	n        int
	sessions map[string]models.SortSession
}

func newInMemorySessionStore() *inMemorySessionStore {
	return &inMemorySessionStore{sessions: make(map[string]models.SortSession)}
}

func (s *inMemorySessionStore) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("S-%d", s.n)
}

func (s *inMemorySessionStore) Save(session models.SortSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *inMemorySessionStore) Get(id string) (*models.SortSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *inMemorySessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *inMemorySessionStore) List() ([]models.SortSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SortSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out, nil
}

// fixedClock returns a now func pinned to t that can be moved forward.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
