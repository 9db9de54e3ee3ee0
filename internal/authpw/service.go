// Package authpw provides username-or-email and password authentication.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"sharelist/api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username/email or password")
	ErrInactive           = errors.New("user account is inactive")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
)

// ValidationError describes rejected input. Field names match the JSON body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

const (
	minPasswordLen = 8
	minUsernameLen = 3
	maxUsernameLen = 100
	maxFullNameLen = 255
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
	UpdateUser(ctx context.Context, user store.User) (store.User, error)
}

type Service struct {
	store UserStore
	cost  int
}

func NewService(store UserStore) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// WithCost lowers the bcrypt cost for tests.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

type RegisterRequest struct {
	Email    string
	Username string
	Password string
	FullName *string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return store.User{}, err
	}
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return store.User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return store.User{}, err
	}
	if err := validateFullName(req.FullName); err != nil {
		return store.User{}, err
	}

	if taken, err := s.exists(ctx, s.store.GetUserByEmail, email); err != nil {
		return store.User{}, err
	} else if taken {
		return store.User{}, ErrEmailTaken
	}
	if taken, err := s.exists(ctx, s.store.GetUserByUsername, username); err != nil {
		return store.User{}, err
	} else if taken {
		return store.User{}, ErrUsernameTaken
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return store.User{}, err
	}

	user, err := s.store.CreateUser(ctx, store.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     req.FullName,
		IsActive:     true,
	})
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, takenError(err)
	}
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate accepts either the username or the email address as
// identifier. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (store.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByIdentifier(ctx, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return store.User{}, ErrInactive
	}
	return user, nil
}

// ProfileUpdate holds the fields a user may change on themselves. Nil
// fields are left untouched.
type ProfileUpdate struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	IsActive *bool
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, err
	}

	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return store.User{}, err
		}
		if !strings.EqualFold(email, user.Email) {
			if taken, err := s.exists(ctx, s.store.GetUserByEmail, email); err != nil {
				return store.User{}, err
			} else if taken {
				return store.User{}, ErrEmailTaken
			}
		}
		user.Email = email
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := validateUsername(username); err != nil {
			return store.User{}, err
		}
		if username != user.Username {
			if taken, err := s.exists(ctx, s.store.GetUserByUsername, username); err != nil {
				return store.User{}, err
			} else if taken {
				return store.User{}, ErrUsernameTaken
			}
		}
		user.Username = username
	}
	if update.FullName != nil {
		if err := validateFullName(update.FullName); err != nil {
			return store.User{}, err
		}
		user.FullName = update.FullName
	}
	if update.Password != nil && *update.Password != "" {
		if err := validatePassword(*update.Password); err != nil {
			return store.User{}, err
		}
		hash, err := s.hash(*update.Password)
		if err != nil {
			return store.User{}, err
		}
		user.PasswordHash = hash
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, takenError(err)
	}
	if err != nil {
		return store.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *Service) exists(ctx context.Context, lookup func(context.Context, string) (store.User, error), value string) (bool, error) {
	_, err := lookup(ctx, value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return true, nil
}

// takenError maps a unique violation that slipped past the existence checks
// (a concurrent registration) onto the matching sentinel.
func takenError(err error) error {
	if strings.Contains(err.Error(), "email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(value string) (string, error) {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return value, nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be %d to %d characters", minUsernameLen, maxUsernameLen)}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	return nil
}

func validateFullName(name *string) error {
	if name != nil && utf8.RuneCountInString(*name) > maxFullNameLen {
		return &ValidationError{Field: "full_name", Message: fmt.Sprintf("must be at most %d characters", maxFullNameLen)}
	}
	return nil
}
