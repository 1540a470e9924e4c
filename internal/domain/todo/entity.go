package todo

import (
	"errors"
	"strings"
)

// Todo は Todo 集約のルートエンティティ。
type Todo struct {
	ID   int64
	Text string
	Done bool
}

// TodoCreate is the client-supplied payload for create and replace.
// ID is always assigned by the store.
type TodoCreate struct {
	Text string
	Done *bool
}

// ---- ドメインエラー（sentinel error） ----

var (
	ErrEmptyText = errors.New("todo text must not be empty")

	// ID が 0 以下など不正なときに使う共通エラー。
	ErrInvalidID = errors.New("todo id must be positive")

	ErrNotFound = errors.New("todo not found")

	// ErrPersistence wraps every failure to read or write the backing storage.
	ErrPersistence = errors.New("todo persistence failed")
)

// NewTodo builds an unsaved Todo from the create payload.
// Done defaults to false when the caller left it unset.
func NewTodo(in TodoCreate) (*Todo, error) {
	if err := ValidateText(in.Text); err != nil {
		return nil, err
	}

	done := false
	if in.Done != nil {
		done = *in.Done
	}
	return &Todo{
		Text: in.Text,
		Done: done,
	}, nil
}

// ValidateText rejects empty and whitespace-only text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateID は ID まわりの共通バリデーション。
func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}

// Clone returns an independent copy so stores never hand out their own records.
func (t *Todo) Clone() *Todo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
