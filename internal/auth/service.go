package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/listkeep/listkeep/internal/model"
	"github.com/listkeep/listkeep/internal/store"
	"github.com/listkeep/listkeep/internal/validate"
)

var (
	// ErrNotFound means no user matched the login id.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidPassword means the user exists but the password did not verify.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service orchestrates registration, login and session destruction over
// the credential and session stores.
type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	cost     int
	logger   *slog.Logger
}

func NewService(us *store.UserStore, ss *store.SessionStore, logger *slog.Logger) *Service {
	return &Service{
		users:    us,
		sessions: ss,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// Register validates the input, hashes the password and persists the
// user. Duplicate email or username surfaces as store.ErrEmailTaken /
// store.ErrUsernameTaken straight from the unique index. The returned
// user never carries the hash.
func (s *Service) Register(name, email, username, password string) (model.PublicUser, error) {
	if verr := validate.Registration(name, email, username, password); verr != nil {
		return model.PublicUser{}, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(name, email, username, string(hash))
	if err != nil {
		return model.PublicUser{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user.Public(), nil
}

// Login resolves the login id (email or username, exactly one lookup),
// verifies the password and creates an authenticated session. The
// submitted password is never logged.
func (s *Service) Login(loginID, password string) (*model.Session, error) {
	if loginID == "" || password == "" {
		return nil, &validate.ValidationError{Field: "login_id", Message: "Login id and password are required"}
	}

	var user *model.User
	var err error
	if validate.IsEmail(loginID) {
		user, err = s.users.GetByEmail(loginID)
	} else {
		user, err = s.users.GetByUsername(loginID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	// bcrypt's comparison is constant time.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	sess, err := s.sessions.Create(user)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("login", "user_id", user.ID, "username", user.Username)
	return sess, nil
}

// Logout destroys exactly the invoking session. A store failure fails the
// logout rather than silently succeeding.
func (s *Service) Logout(sessionID int64) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// LogoutAll destroys every session whose embedded username matches. It
// trusts the identity embedded in the caller's current session and never
// re-derives credentials.
func (s *Service) LogoutAll(username string) (int64, error) {
	count, err := s.sessions.DeleteByUsername(username)
	if err != nil {
		return 0, fmt.Errorf("destroy sessions: %w", err)
	}
	s.logger.Info("logout all devices", "username", username, "sessions", count)
	return count, nil
}
