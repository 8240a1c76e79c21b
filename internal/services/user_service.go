package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 8
)

var (
	errUserRepositoryRequired = errors.New("user service: user repository is required")
	errUserHasherRequired     = errors.New("user service: password hasher is required")
)

// ErrUserInvalidInput indicates the caller supplied invalid input.
var ErrUserInvalidInput = errors.New("user service: invalid input")

// ErrUserNotFound indicates the requested account does not exist.
var ErrUserNotFound = errors.New("user service: not found")

// ErrUserConflict indicates the username is already taken.
var ErrUserConflict = errors.New("user service: conflict")

// ErrUserInvalidCredentials indicates the supplied credentials do not match
// an active account.
var ErrUserInvalidCredentials = errors.New("user service: invalid credentials")

// ErrUserDisabled indicates the account exists but has been disabled.
var ErrUserDisabled = errors.New("user service: account disabled")

// ErrUserUnavailable indicates the user service cannot fulfil the request due
// to backend issues.
var ErrUserUnavailable = errors.New("user service: unavailable")

// UserServiceDeps wires the repository and credential helpers for account
// operations.
type UserServiceDeps struct {
	Users          repositories.UserRepository
	HashPassword   func(password string) (string, error)
	VerifyPassword func(hash, password string) error
	Logger         func(context.Context, string, map[string]any)
}

type userService struct {
	users  repositories.UserRepository
	hash   func(string) (string, error)
	verify func(hash, password string) error
	logger func(context.Context, string, map[string]any)
}

// NewUserService constructs a UserService enforcing dependency validation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errUserRepositoryRequired
	}
	if deps.HashPassword == nil || deps.VerifyPassword == nil {
		return nil, errUserHasherRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:  deps.Users,
		hash:   deps.HashPassword,
		verify: deps.VerifyPassword,
		logger: logger,
	}, nil
}

// Register creates a new account with a unique, NFKC-normalised username.
func (s *userService) Register(ctx context.Context, cmd RegisterUserCommand) (domain.User, error) {
	username := normaliseUsername(cmd.Username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return domain.User{}, fmt.Errorf("%w: username must be between %d and %d characters", ErrUserInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if len(cmd.Password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalidInput, minPasswordLength)
	}
	role, ok := domain.ParseUserRole(string(cmd.Role))
	if !ok {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrUserInvalidInput, cmd.Role)
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return domain.User{}, s.translateRepoError(err)
	}
	if taken {
		return domain.User{}, fmt.Errorf("%w: username already taken", ErrUserConflict)
	}

	hashed, err := s.hash(cmd.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("user service: hash password: %w", err)
	}

	user, err := s.users.Insert(ctx, domain.User{
		Username:       username,
		HashedPassword: hashed,
		Role:           role,
	})
	if err != nil {
		if isRepoConflict(err) {
			return domain.User{}, fmt.Errorf("%w: username already taken", ErrUserConflict)
		}
		return domain.User{}, s.translateRepoError(err)
	}

	s.logger(ctx, "user.registered", map[string]any{
		"userID": user.ID,
		"role":   string(user.Role),
	})
	return user, nil
}

// Authenticate resolves the account for a username/password pair. Unknown
// usernames and wrong passwords fail identically so callers cannot probe for
// account existence.
func (s *userService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	username = normaliseUsername(username)
	if username == "" || password == "" {
		return domain.User{}, ErrUserInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.User{}, ErrUserInvalidCredentials
		}
		return domain.User{}, s.translateRepoError(err)
	}

	if err := s.verify(user.HashedPassword, password); err != nil {
		return domain.User{}, ErrUserInvalidCredentials
	}
	if user.Disabled {
		return domain.User{}, ErrUserDisabled
	}

	return user, nil
}

// GetUser loads an account by id.
func (s *userService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	if userID <= 0 {
		return domain.User{}, fmt.Errorf("%w: user id must be positive", ErrUserInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, s.translateRepoError(err)
	}
	return user, nil
}

// ListUsers returns accounts, optionally narrowed by a username substring.
func (s *userService) ListUsers(ctx context.Context, usernameFilter string) ([]domain.User, error) {
	users, err := s.users.List(ctx, repositories.UserListFilter{
		Username: strings.TrimSpace(usernameFilter),
	})
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// normaliseUsername applies NFKC so visually equivalent unicode spellings map
// to one canonical account name.
func normaliseUsername(username string) string {
	return norm.NFKC.String(strings.ToLower(strings.TrimSpace(username)))
}

func (s *userService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrUserNotFound
		case repoErr.IsConflict():
			return ErrUserConflict
		}
		return ErrUserUnavailable
	}
	return ErrUserUnavailable
}
