package cli

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// --- In-memory stores backing the real core services ---

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]models.Task
}

func (s *memTaskStore) Create(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *memTaskStore) Get(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, core.ErrTaskNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (s *memTaskStore) Update(task models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return nil, core.ErrTaskNotFound
	}
	if existing.Version != task.Version {
		return nil, core.ErrVersionConflict
	}
	task.Version++
	s.tasks[task.ID] = task.Clone()
	return &task, nil
}

func (s *memTaskStore) List(filter core.TaskFilter) ([]models.Task, error) {
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

type memSessionStore struct {
	mu       sync.Mutex
	n        int
	sessions map[string]models.SortSession
}

func (s *memSessionStore) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("S-%d", s.n)
}

func (s *memSessionStore) Save(session models.SortSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *memSessionStore) Get(id string) (*models.SortSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return &session, nil
}

func (s *memSessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) List() ([]models.SortSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SortSession
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out, nil
}

type seqIDs struct{ n int }

func (g *seqIDs) GenerateTaskID() (string, error) {
	g.n++
	return fmt.Sprintf("GTD-%05d", g.n), nil
}

// --- Helpers ---

var cliNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// withServices wires real task and sort services into the package vars for
// the duration of the test.
func withServices(t *testing.T) (core.TaskManager, core.SortService) {
	t.Helper()
	origTaskMgr, origSorter, origLocation := TaskMgr, Sorter, Location
	t.Cleanup(func() {
		TaskMgr, Sorter, Location = origTaskMgr, origSorter, origLocation
	})

	now := func() time.Time { return cliNow }
	tm := core.NewTaskManager(&memTaskStore{tasks: map[string]models.Task{}}, &seqIDs{}, nil, core.TaskManagerOpts{Now: now})
	sorter := core.NewSortService(tm, &memSessionStore{sessions: map[string]models.SortSession{}}, nil, now)
	TaskMgr, Sorter, Location = tm, sorter, time.UTC
	return tm, sorter
}

// runCmd invokes cmd's RunE with output captured. Flags set on the command
// are reset afterwards.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		resetFlags(cmd)
	})
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

// setFlags sets flags on cmd as if given on the command line.
func setFlags(t *testing.T, cmd *cobra.Command, kv ...string) {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		if err := cmd.Flags().Set(kv[i], kv[i+1]); err != nil {
			t.Fatalf("setting --%s: %v", kv[i], err)
		}
	}
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func mustCreate(t *testing.T, tm core.TaskManager, text string) *models.Task {
	t.Helper()
	task, err := tm.CreateTask(models.TaskInput{Text: text})
	if err != nil {
		t.Fatalf("creating task: %v", err)
	}
	return task
}
