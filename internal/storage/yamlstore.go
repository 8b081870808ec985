package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	tasksFileName = "tasks.yaml"
	tasksFormat   = "1.0"
)

// TaskFile is the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

type yamlTaskStore struct {
	basePath string
}

// NewYAMLTaskStore returns a TaskStore backed by tasks.yaml in basePath.
// Every call re-reads the file under a lock, so several processes can share
// it.
func NewYAMLTaskStore(basePath string) TaskStore {
	return &yamlTaskStore{basePath: basePath}
}

func (s *yamlTaskStore) filePath() string {
	return filepath.Join(s.basePath, tasksFileName)
}

func (s *yamlTaskStore) lockPath() string {
	return s.filePath() + ".lock"
}

func (s *yamlTaskStore) Create(task models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("creating task: ID must not be empty")
	}
	return withLock(s.lockPath(), syscall.LOCK_EX, func() error {
		f, err := s.load()
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		if _, exists := f.Tasks[task.ID]; exists {
			return fmt.Errorf("creating task %s: %w", task.ID, ErrAlreadyExists)
		}
		f.Tasks[task.ID] = task.Clone()
		if err := s.save(f); err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		return nil
	})
}

func (s *yamlTaskStore) Get(id string) (*models.Task, error) {
	var out *models.Task
	err := withLock(s.lockPath(), syscall.LOCK_SH, func() error {
		f, err := s.load()
		if err != nil {
			return fmt.Errorf("getting task: %w", err)
		}
		t, ok := f.Tasks[id]
		if !ok {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		out = &t
		return nil
	})
	return out, err
}

func (s *yamlTaskStore) Update(task models.Task) (*models.Task, error) {
	var out *models.Task
	err := withLock(s.lockPath(), syscall.LOCK_EX, func() error {
		f, err := s.load()
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		existing, ok := f.Tasks[task.ID]
		if !ok {
			return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
		}
		if existing.Version != task.Version {
			return fmt.Errorf("updating task %s (have v%d, stored v%d): %w",
				task.ID, task.Version, existing.Version, ErrVersionConflict)
		}
		stored := task.Clone()
		stored.Version++
		f.Tasks[task.ID] = stored
		if err := s.save(f); err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		out = &stored
		return nil
	})
	return out, err
}

func (s *yamlTaskStore) List(filter TaskFilter) ([]models.Task, error) {
	var out []models.Task
	err := withLock(s.lockPath(), syscall.LOCK_SH, func() error {
		f, err := s.load()
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		for _, t := range f.Tasks {
			if filter.matches(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *yamlTaskStore) Close() error { return nil }

func (s *yamlTaskStore) load() (*TaskFile, error) {
	f := &TaskFile{Version: tasksFormat, Tasks: make(map[string]models.Task)}
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("reading %s: %w", tasksFileName, err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", tasksFileName, err)
	}
	if f.Tasks == nil {
		f.Tasks = make(map[string]models.Task)
	}
	return f, nil
}

func (s *yamlTaskStore) save(f *TaskFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", tasksFileName, err)
	}
	return writeFileAtomic(s.filePath(), data)
}
