package todo_usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
	"go.uber.org/zap"
)

// ===== エラー定数（Handler側からも使う） =====

var (
	ErrEmptyText   = domain_todo.ErrEmptyText
	ErrNotFound    = domain_todo.ErrNotFound
	ErrPersistence = domain_todo.ErrPersistence
)

// Methods allowed on the collection and on a single item.
var (
	CollectionMethods = []string{"GET", "POST", "OPTIONS"}
	ItemMethods       = []string{"GET", "PUT", "DELETE", "OPTIONS"}
)

// Created is the result of Create. Location is the path of the new resource.
type Created struct {
	Todo     *domain_todo.Todo
	Location string
}

// Location returns the resource path of the todo with id.
func Location(id int64) string {
	return fmt.Sprintf("/todos/%d", id)
}

// ===== 外部に公開する Usecase インターフェース =====

type Usecase interface {
	List(ctx context.Context) ([]*domain_todo.Todo, error)
	Create(ctx context.Context, in domain_todo.TodoCreate) (*Created, error)
	Get(ctx context.Context, id int64) (*domain_todo.Todo, error)
	Update(ctx context.Context, id int64, in domain_todo.TodoCreate) (*domain_todo.Todo, error)
	Delete(ctx context.Context, id int64) error
	AllowedForCollection() []string
	AllowedForItem(ctx context.Context, id int64) ([]string, error)
}

// ===== 実装 =====

type usecase struct {
	repo   domain_todo.Repository
	tx     domain_todo.Transactor
	logger *zap.Logger
}

// New wires the usecase. tx may be nil for stores without transactions.
func New(repo domain_todo.Repository, tx domain_todo.Transactor, logger *zap.Logger) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &usecase{repo: repo, tx: tx, logger: logger}
}

func (u *usecase) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if u.tx == nil {
		return fn(ctx)
	}
	return u.tx.WithinTx(ctx, fn)
}

func (u *usecase) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	return u.repo.List(ctx)
}

func (u *usecase) Create(ctx context.Context, in domain_todo.TodoCreate) (*Created, error) {
	t, err := domain_todo.NewTodo(in)
	if err != nil {
		return nil, err
	}

	u.logger.Info("saving todo", zap.String("text", t.Text))

	created, err := u.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}

	u.logger.Info("saved todo", zap.Int64("id", created.ID))

	return &Created{
		Todo:     created,
		Location: Location(created.ID),
	}, nil
}

func (u *usecase) Get(ctx context.Context, id int64) (*domain_todo.Todo, error) {
	// 0 以下の ID は存在しえないので store まで行かない
	if err := domain_todo.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}

	t, ok, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Update replaces text and done of an existing todo. The existence check and
// the write share one transaction when the store supports it.
func (u *usecase) Update(ctx context.Context, id int64, in domain_todo.TodoCreate) (*domain_todo.Todo, error) {
	replacement, err := domain_todo.NewTodo(in)
	if err != nil {
		return nil, err
	}
	if err := domain_todo.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}
	replacement.ID = id

	var updated *domain_todo.Todo
	err = u.withinTx(ctx, func(ctx context.Context) error {
		_, ok, err := u.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		updated, err = u.repo.Update(ctx, replacement)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("updated todo", zap.Int64("id", id), zap.Bool("done", updated.Done))
	return updated, nil
}

func (u *usecase) Delete(ctx context.Context, id int64) error {
	if err := domain_todo.ValidateID(id); err != nil {
		return ErrNotFound
	}

	if err := u.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain_todo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	u.logger.Info("deleted todo", zap.Int64("id", id))
	return nil
}

func (u *usecase) AllowedForCollection() []string {
	return append([]string(nil), CollectionMethods...)
}

// AllowedForItem fails with ErrNotFound like Get does.
func (u *usecase) AllowedForItem(ctx context.Context, id int64) ([]string, error) {
	if _, err := u.Get(ctx, id); err != nil {
		return nil, err
	}
	return append([]string(nil), ItemMethods...), nil
}

// AllowHeader joins methods the way the Allow header expects.
func AllowHeader(methods []string) string {
	return strings.Join(methods, ",")
}
