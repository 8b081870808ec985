package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
	"gopkg.in/yaml.v3"
)

// SortSessionStore keeps in-progress sort sessions as sessions/<id>.yaml.
type SortSessionStore interface {
	NewID() string
	Save(s models.SortSession) error
	Get(id string) (*models.SortSession, error)
	Delete(id string) error
	List() ([]models.SortSession, error)
}

type fileSortSessionStore struct {
	basePath string
}

// NewSortSessionStore creates a SortSessionStore under basePath/sessions.
func NewSortSessionStore(basePath string) SortSessionStore {
	return &fileSortSessionStore{basePath: basePath}
}

func (s *fileSortSessionStore) dir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileSortSessionStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return filepath.Join(s.dir(), id+".yaml"), nil
}

// NewID returns a random UUID.
func (s *fileSortSessionStore) NewID() string {
	return uuid.NewString()
}

func (s *fileSortSessionStore) Save(session models.SortSession) error {
	p, err := s.path(session.ID)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	data, err := yaml.Marshal(&session)
	if err != nil {
		return fmt.Errorf("saving session: marshaling YAML: %w", err)
	}
	if err := writeFileAtomic(p, data); err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}
	return nil
}

func (s *fileSortSessionStore) Get(id string) (*models.SortSession, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var session models.SortSession
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return &session, nil
}

func (s *fileSortSessionStore) Delete(id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// List returns all stored sessions, oldest first. Unreadable files are
// skipped.
func (s *fileSortSessionStore) List() ([]models.SortSession, error) {
	entries, err := os.ReadDir(s.dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	var out []models.SortSession
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		session, err := s.Get(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			continue
		}
		out = append(out, *session)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
