package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/listkeep/listkeep/internal/model"
)

var (
	// ErrEmailTaken is returned when the email unique index rejects an insert.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when the username unique index rejects an insert.
	ErrUsernameTaken = errors.New("username already taken")
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, email, username, password_hash, created_at, updated_at`

// Create inserts a new user. The unique indexes on email and username are
// the authoritative duplicate check; a constraint violation surfaces as
// ErrEmailTaken or ErrUsernameTaken.
func (s *UserStore) Create(name, email, username, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (name, email, username, password_hash) VALUES (?, ?, ?, ?)`,
		name, email, username, passwordHash,
	)
	if err != nil {
		if conflictErr := mapUniqueConflict(err); conflictErr != nil {
			return nil, conflictErr
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// mapUniqueConflict translates a SQLite unique-constraint violation into
// the matching sentinel error, or returns nil for any other error.
func mapUniqueConflict(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return nil
	}
	if serr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return nil
	}
	msg := serr.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return ErrEmailTaken
	case strings.Contains(msg, "users.username"):
		return ErrUsernameTaken
	default:
		return nil
	}
}
