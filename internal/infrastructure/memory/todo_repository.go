// Package memory is a process-local todo store. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
)

type TodoRepository struct {
	mu    sync.Mutex
	next  int64
	items []domain_todo.Todo
}

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{next: 1}
}

func (r *TodoRepository) Create(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := domain_todo.Todo{ID: r.next, Text: t.Text, Done: t.Done}
	r.next++
	r.items = append(r.items, created)
	return created.Clone(), nil
}

func (r *TodoRepository) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	todos := make([]*domain_todo.Todo, 0, len(r.items))
	for i := range r.items {
		todos = append(todos, r.items[i].Clone())
	}
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		return r.items[i].Clone(), true, nil
	}
	return nil, false, nil
}

func (r *TodoRepository) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(t.ID)
	if i < 0 {
		return nil, domain_todo.ErrNotFound
	}
	r.items[i].Text = t.Text
	r.items[i].Done = t.Done
	return r.items[i].Clone(), nil
}

func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain_todo.ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *TodoRepository) indexOf(id int64) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
