// Package file implements the todo repository on top of a single JSON file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
	"go.uber.org/zap"
)

// DefaultPath is used when no data file is configured.
const DefaultPath = "todo_data.json"

// LoadError is returned by Open when the data file exists but cannot be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load todos from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// todoRecord is the on-disk shape of a single todo.
type todoRecord struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// TodoRepository keeps the whole collection in memory and rewrites the file
// after every mutation. mu covers read -> compute -> persist -> publish.
type TodoRepository struct {
	mu     sync.Mutex
	path   string
	todos  []domain_todo.Todo
	nextID int64
	logger *zap.Logger
}

// Open loads path if it exists. A missing or blank file yields an empty
// collection; malformed content fails with *LoadError.
func Open(path string, logger *zap.Logger) (*TodoRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}

	todos, err := load(path)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, t := range todos {
		if t.ID > maxID {
			maxID = t.ID
		}
	}

	logger.Info("todo store loaded",
		zap.String("path", path),
		zap.Int("count", len(todos)),
		zap.Int64("next_id", maxID+1),
	)

	return &TodoRepository{
		path:   path,
		todos:  todos,
		nextID: maxID + 1,
		logger: logger,
	}, nil
}

func load(path string) ([]domain_todo.Todo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain_todo.Todo{}, nil
		}
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", domain_todo.ErrPersistence, err)}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []domain_todo.Todo{}, nil
	}

	var records []todoRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode json: %w", err)}
	}

	seen := make(map[int64]struct{}, len(records))
	todos := make([]domain_todo.Todo, 0, len(records))
	for i, r := range records {
		if err := domain_todo.ValidateID(r.ID); err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		if _, dup := seen[r.ID]; dup {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("record %d: duplicate id %d", i, r.ID)}
		}
		seen[r.ID] = struct{}{}
		todos = append(todos, domain_todo.Todo{ID: r.ID, Text: r.Text, Done: r.Done})
	}
	return todos, nil
}

// List returns every todo in insertion order.
func (r *TodoRepository) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain_todo.Todo, 0, len(r.todos))
	for i := range r.todos {
		out = append(out, r.todos[i].Clone())
	}
	return out, nil
}

// Get は見つからなければ ok=false を返す（エラーではない）。
func (r *TodoRepository) Get(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, false, nil
	}
	return r.todos[i].Clone(), true, nil
}

// Create assigns the next id, appends t and persists the collection.
func (r *TodoRepository) Create(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := domain_todo.Todo{ID: r.nextID, Text: t.Text, Done: t.Done}

	next := make([]domain_todo.Todo, len(r.todos), len(r.todos)+1)
	copy(next, r.todos)
	next = append(next, created)

	if err := r.persist(next); err != nil {
		return nil, err
	}
	r.todos = next
	r.nextID++

	return created.Clone(), nil
}

// Update replaces text and done of an existing todo; the id never changes.
func (r *TodoRepository) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(t.ID)
	if i < 0 {
		return nil, domain_todo.ErrNotFound
	}

	next := make([]domain_todo.Todo, len(r.todos))
	copy(next, r.todos)
	next[i].Text = t.Text
	next[i].Done = t.Done

	if err := r.persist(next); err != nil {
		return nil, err
	}
	r.todos = next

	return next[i].Clone(), nil
}

// Delete removes the todo with id or returns ErrNotFound.
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain_todo.ErrNotFound
	}

	next := make([]domain_todo.Todo, 0, len(r.todos)-1)
	next = append(next, r.todos[:i]...)
	next = append(next, r.todos[i+1:]...)

	if err := r.persist(next); err != nil {
		return err
	}
	r.todos = next
	return nil
}

// caller must hold mu
func (r *TodoRepository) indexOf(id int64) int {
	for i := range r.todos {
		if r.todos[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes todos to a temp file next to the target and renames it into
// place, so a failed write leaves the previous file intact.
func (r *TodoRepository) persist(todos []domain_todo.Todo) error {
	records := make([]todoRecord, len(todos))
	for i, t := range todos {
		records[i] = todoRecord{ID: t.ID, Text: t.Text, Done: t.Done}
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode json: %w", domain_todo.ErrPersistence, err)
	}

	if err := writeFileAtomic(r.path, b); err != nil {
		r.logger.Error("failed to persist todos", zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("%w: %w", domain_todo.ErrPersistence, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
