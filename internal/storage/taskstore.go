package storage

import (
	"slices"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// TaskFilter narrows List. Empty fields match everything.
type TaskFilter struct {
	Status   []models.TaskStatus
	ParentID string
}

func (f TaskFilter) matches(t models.Task) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, t.Status) {
		return false
	}
	if f.ParentID != "" && (t.ParentID == nil || *t.ParentID != f.ParentID) {
		return false
	}
	return true
}

// TaskStore is implemented by every task backend.
//
// Update succeeds only when task.Version equals the stored version; the
// stored copy then gets Version+1 and is returned. Otherwise it fails with
// ErrVersionConflict.
type TaskStore interface {
	Create(task models.Task) error
	Get(id string) (*models.Task, error)
	Update(task models.Task) (*models.Task, error)
	List(filter TaskFilter) ([]models.Task, error)
	Close() error
}
