package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/gtd-brain/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	text          TEXT NOT NULL,
	status        TEXT NOT NULL,
	is_key        INTEGER NOT NULL DEFAULT 0,
	is_golden     INTEGER NOT NULL DEFAULT 0,
	collaborators TEXT NOT NULL DEFAULT '[]',
	due_datetime  TEXT,
	responsible   TEXT,
	project       TEXT,
	parent_id     TEXT,
	created_at    TEXT NOT NULL,
	sorted_at     TEXT,
	completed_at  TEXT,
	version       INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
`

const taskColumns = `id, text, status, is_key, is_golden, collaborators, due_datetime,
	responsible, project, parent_id, created_at, sorted_at, completed_at, version`

type sqliteTaskStore struct {
	db *sql.DB
}

// NewSQLiteTaskStore opens (creating if needed) a SQLite database at path and
// returns a TaskStore over its tasks table.
func NewSQLiteTaskStore(path string) (TaskStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &sqliteTaskStore{db: db}, nil
}

func (s *sqliteTaskStore) Create(task models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("creating task: ID must not be empty")
	}
	row, err := toRow(task)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.text, row.status, row.isKey, row.isGolden, row.collaborators, row.due,
		row.responsible, row.project, row.parentID, row.createdAt, row.sortedAt, row.completedAt, row.version,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("creating task %s: %w", task.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (s *sqliteTaskStore) Get(id string) (*models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return t, nil
}

// Update writes task only if the stored row still has task.Version.
func (s *sqliteTaskStore) Update(task models.Task) (*models.Task, error) {
	row, err := toRow(task)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	res, err := s.db.Exec(`UPDATE tasks SET
		text = ?, status = ?, is_key = ?, is_golden = ?, collaborators = ?, due_datetime = ?,
		responsible = ?, project = ?, parent_id = ?, sorted_at = ?, completed_at = ?,
		version = version + 1
		WHERE id = ? AND version = ?`,
		row.text, row.status, row.isKey, row.isGolden, row.collaborators, row.due,
		row.responsible, row.project, row.parentID, row.sortedAt, row.completedAt,
		row.id, row.version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if n == 0 {
		if _, err := s.Get(task.ID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("updating task %s (have v%d): %w", task.ID, task.Version, ErrVersionConflict)
	}
	return s.Get(task.ID)
}

func (s *sqliteTaskStore) List(filter TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var (
		where []string
		args  []any
	)
	if len(filter.Status) > 0 {
		marks := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.ParentID != "" {
		where = append(where, "parent_id = ?")
		args = append(args, filter.ParentID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return out, nil
}

func (s *sqliteTaskStore) Close() error {
	return s.db.Close()
}

// taskRow is the column form of a task.
type taskRow struct {
	id            string
	text          string
	status        string
	isKey         bool
	isGolden      bool
	collaborators string
	due           sql.NullString
	responsible   sql.NullString
	project       sql.NullString
	parentID      sql.NullString
	createdAt     string
	sortedAt      sql.NullString
	completedAt   sql.NullString
	version       int
}

func toRow(t models.Task) (taskRow, error) {
	collaborators := t.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	collabJSON, err := json.Marshal(collaborators)
	if err != nil {
		return taskRow{}, fmt.Errorf("encoding collaborators: %w", err)
	}
	row := taskRow{
		id:            t.ID,
		text:          t.Text,
		status:        string(t.Status),
		isKey:         t.IsKey,
		isGolden:      t.IsGolden,
		collaborators: string(collabJSON),
		due:           formatTime(t.DueDatetime),
		responsible:   nullString(t.Responsible),
		parentID:      nullString(t.ParentID),
		createdAt:     t.CreatedAt.UTC().Format(time.RFC3339Nano),
		sortedAt:      formatTime(t.SortedAt),
		completedAt:   formatTime(t.CompletedAt),
		version:       t.Version,
	}
	if t.Project != nil {
		p, err := json.Marshal(t.Project)
		if err != nil {
			return taskRow{}, fmt.Errorf("encoding project: %w", err)
		}
		row.project = sql.NullString{String: string(p), Valid: true}
	}
	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*models.Task, error) {
	var r taskRow
	if err := sc.Scan(&r.id, &r.text, &r.status, &r.isKey, &r.isGolden, &r.collaborators, &r.due,
		&r.responsible, &r.project, &r.parentID, &r.createdAt, &r.sortedAt, &r.completedAt, &r.version); err != nil {
		return nil, err
	}

	t := &models.Task{
		ID:       r.id,
		Text:     r.text,
		Status:   models.TaskStatus(r.status),
		IsKey:    r.isKey,
		IsGolden: r.isGolden,
		Version:  r.version,
	}
	if err := json.Unmarshal([]byte(r.collaborators), &t.Collaborators); err != nil {
		return nil, fmt.Errorf("decoding collaborators of %s: %w", r.id, err)
	}
	if r.project.Valid {
		var p models.Project
		if err := json.Unmarshal([]byte(r.project.String), &p); err != nil {
			return nil, fmt.Errorf("decoding project of %s: %w", r.id, err)
		}
		t.Project = &p
	}
	t.Responsible = stringPtr(r.responsible)
	t.ParentID = stringPtr(r.parentID)

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, r.createdAt); err != nil {
		return nil, fmt.Errorf("decoding created_at of %s: %w", r.id, err)
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{r.due, &t.DueDatetime},
		{r.sortedAt, &t.SortedAt},
		{r.completedAt, &t.CompletedAt},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, fmt.Errorf("decoding timestamp of %s: %w", r.id, err)
		}
	}
	return t, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
