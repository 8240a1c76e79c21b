package postgres

import (
	"context"
	"fmt"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

// UserRepository stores account records in the users table.
type UserRepository struct {
	*store
}

// Insert persists a new user and returns it with the generated id.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (username, hashed_password, role, disabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.querier(ctx).QueryRowContext(ctx, query,
		user.Username, user.HashedPassword, string(user.Role), user.Disabled,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return domain.User{}, wrapError("users.insert", err)
	}
	return user, nil
}

// FindByID loads a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	const query = `
		SELECT id, username, hashed_password, role, disabled, created_at
		FROM users WHERE id = $1`

	return r.scanUser(ctx, query, userID)
}

// FindByUsername loads a user by unique username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
		SELECT id, username, hashed_password, role, disabled, created_at
		FROM users WHERE username = $1`

	return r.scanUser(ctx, query, username)
}

// ExistsByID reports whether a user row exists for the id.
func (r *UserRepository) ExistsByID(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.querier(ctx).QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, wrapError("users.exists_by_id", err)
	}
	return exists, nil
}

// ExistsByUsername reports whether the username is already taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	if err := r.querier(ctx).QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, wrapError("users.exists_by_username", err)
	}
	return exists, nil
}

// List returns users matching the filter ordered by id.
func (r *UserRepository) List(ctx context.Context, filter repositories.UserListFilter) ([]domain.User, error) {
	query := `
		SELECT id, username, hashed_password, role, disabled, created_at
		FROM users`
	args := []any{}
	if filter.Username != "" {
		query += ` WHERE username LIKE $1`
		args = append(args, "%"+filter.Username+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError("users.list", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		var role string
		if err := rows.Scan(&user.ID, &user.Username, &user.HashedPassword, &role, &user.Disabled, &user.CreatedAt); err != nil {
			return nil, wrapError("users.list", err)
		}
		user.Role = domain.UserRole(role)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("users.list", err)
	}
	return users, nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, arg any) (domain.User, error) {
	var user domain.User
	var role string
	err := r.querier(ctx).QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.HashedPassword, &role, &user.Disabled, &user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, wrapError(fmt.Sprintf("users.find(%v)", arg), err)
	}
	user.Role = domain.UserRole(role)
	return user, nil
}
