package pg

import (
	"context"
	"time"

	"rig.dev/identity/internal/identity"
	"rig.dev/identity/internal/ids"
)

const userColumns = `id, email, display_name, created_at, is_active`

// UserQueries reads and writes app_user rows.
type UserQueries struct{ h Handle }

// CreateUserParams are the caller-supplied fields of a new user.
type CreateUserParams struct {
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

func scanUser(r rowScanner) (identity.User, error) {
	var u identity.User
	err := r.Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt, &u.IsActive)
	return u, err
}

// Create inserts an active user.
func (q *UserQueries) Create(ctx context.Context, p CreateUserParams) (identity.User, error) {
	u, err := scanUser(q.h.QueryRowContext(ctx, `
		insert into app_user (id, email, display_name, created_at, is_active)
		values ($1, $2, $3, $4, true)
		returning `+userColumns,
		ids.New(), p.Email, p.DisplayName, p.CreatedAt))
	return single(u, err, "users.create", "user %s could not be created", p.Email)
}

// GetByID fetches a user by id.
func (q *UserQueries) GetByID(ctx context.Context, userID string) (identity.User, error) {
	u, err := scanUser(q.h.QueryRowContext(ctx, `
		select `+userColumns+`
		from app_user
		where id = $1`, userID))
	return single(u, err, "users.get_by_id", "user %s not found", userID)
}

// GetByEmail fetches a user by its unique email.
func (q *UserQueries) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	u, err := scanUser(q.h.QueryRowContext(ctx, `
		select `+userColumns+`
		from app_user
		where email = $1`, email))
	return single(u, err, "users.get_by_email", "user %s not found", email)
}

// Deactivate clears is_active and returns the updated user.
func (q *UserQueries) Deactivate(ctx context.Context, userID string) (identity.User, error) {
	u, err := scanUser(q.h.QueryRowContext(ctx, `
		update app_user
		set is_active = false
		where id = $1
		returning `+userColumns, userID))
	return single(u, err, "users.deactivate", "user %s not found", userID)
}
