package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
	"go.uber.org/zap"
)

type TodoRepository struct {
	db     *sql.DB
	logger *zap.Logger
	retry  RetryPolicy
}

func NewTodoRepository(db *sql.DB, logger *zap.Logger) *TodoRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoRepository{
		db:     db,
		logger: logger,
		retry:  DefaultReadRetry,
	}
}

// conn は ctx に Tx があればそれを、なければ *sql.DB を返す。
func (r *TodoRepository) conn(ctx context.Context) execer {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *TodoRepository) wrap(op string, err error) error {
	r.logger.Error("mysql operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", domain_todo.ErrPersistence, op, err)
}

// Create は INSERT して AUTO_INCREMENT の ID を付けて返す。
func (r *TodoRepository) Create(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		"INSERT INTO todos (text, done) VALUES (?, ?)",
		t.Text,
		t.Done,
	)
	if err != nil {
		return nil, r.wrap("insert todo", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, r.wrap("last insert id", err)
	}

	return &domain_todo.Todo{ID: id, Text: t.Text, Done: t.Done}, nil
}

// List returns all rows ordered by id, which is insertion order for
// AUTO_INCREMENT keys.
func (r *TodoRepository) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	var todos []*domain_todo.Todo

	err := doWithRetry(ctx, r.retry, func() error {
		rows, err := r.conn(ctx).QueryContext(ctx, "SELECT id, text, done FROM todos ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()

		todos = todos[:0]
		for rows.Next() {
			var t domain_todo.Todo
			if err := rows.Scan(&t.ID, &t.Text, &t.Done); err != nil {
				return err
			}
			todos = append(todos, &t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, r.wrap("list todos", err)
	}
	if todos == nil {
		todos = []*domain_todo.Todo{}
	}
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	var t domain_todo.Todo
	found := true

	err := doWithRetry(ctx, r.retry, func() error {
		err := r.conn(ctx).QueryRowContext(ctx,
			"SELECT id, text, done FROM todos WHERE id = ?", id,
		).Scan(&t.ID, &t.Text, &t.Done)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, r.wrap("get todo", err)
	}
	if !found {
		return nil, false, nil
	}
	return &t, true, nil
}

func (r *TodoRepository) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		"UPDATE todos SET text = ?, done = ? WHERE id = ?",
		t.Text,
		t.Done,
		t.ID,
	)
	if err != nil {
		return nil, r.wrap("update todo", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, r.wrap("rows affected", err)
	}
	if affected == 0 {
		return nil, domain_todo.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.conn(ctx).ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return r.wrap("delete todo", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return r.wrap("rows affected", err)
	}
	if affected == 0 {
		return domain_todo.ErrNotFound
	}
	return nil
}
