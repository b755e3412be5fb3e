package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/listkeep/listkeep/internal/model"
)

type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

func scanTodo(scanner interface{ Scan(...any) error }) (*model.Todo, error) {
	var t model.Todo
	var done, reminded int
	var dueAt sql.NullTime

	err := scanner.Scan(&t.ID, &t.UserID, &t.Text, &done, &dueAt, &reminded, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Done = done != 0
	t.Reminded = reminded != 0
	if dueAt.Valid {
		t.DueAt = &dueAt.Time
	}
	return &t, nil
}

const todoCols = `id, user_id, text, done, due_at, reminded, created_at, updated_at`

func (s *TodoStore) Create(userID int64, text string, dueAt *time.Time) (*model.Todo, error) {
	var due sql.NullTime
	if dueAt != nil {
		due = sql.NullTime{Time: dueAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO todos (user_id, text, due_at) VALUES (?, ?, ?)`,
		userID, text, due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(id)
}

func (s *TodoStore) getByID(id int64) (*model.Todo, error) {
	row := s.db.QueryRow(`SELECT `+todoCols+` FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// GetForUser returns the todo only if it belongs to userID. Items of other
// users are indistinguishable from missing ones.
func (s *TodoStore) GetForUser(id, userID int64) (*model.Todo, error) {
	row := s.db.QueryRow(`SELECT `+todoCols+` FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// List returns a page of the user's todos, newest first. skip and limit
// back the dashboard's "show more" pagination.
func (s *TodoStore) List(userID int64, skip, limit int) ([]model.Todo, error) {
	rows, err := s.db.Query(
		`SELECT `+todoCols+` FROM todos WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

func (s *TodoStore) Update(id, userID int64, text string, done bool, dueAt *time.Time) (*model.Todo, error) {
	var due sql.NullTime
	if dueAt != nil {
		due = sql.NullTime{Time: dueAt.UTC(), Valid: true}
	}
	var d int
	if done {
		d = 1
	}

	result, err := s.db.Exec(
		`UPDATE todos SET text = ?, done = ?, due_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		text, d, due, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.getByID(id)
}

// ToggleDone flips the done flag and returns the updated todo, or nil if
// the item is not the user's.
func (s *TodoStore) ToggleDone(id, userID int64) (*model.Todo, error) {
	result, err := s.db.Exec(
		`UPDATE todos SET done = 1 - done, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.getByID(id)
}

func (s *TodoStore) Delete(id, userID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListDueForReminder returns unfinished todos due before the cutoff that
// have not yet been reminded.
func (s *TodoStore) ListDueForReminder(cutoff time.Time) ([]model.Todo, error) {
	rows, err := s.db.Query(
		`SELECT `+todoCols+` FROM todos
		 WHERE done = 0 AND reminded = 0 AND due_at IS NOT NULL AND due_at <= ?
		 ORDER BY due_at`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

func (s *TodoStore) MarkReminded(id int64) error {
	_, err := s.db.Exec(`UPDATE todos SET reminded = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
