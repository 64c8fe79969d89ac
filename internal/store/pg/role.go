package pg

import (
	"context"
	"fmt"

	"rig.dev/identity/internal/ids"
	"rig.dev/identity/internal/rbac"
)

const roleColumns = `id, name, owner, description`

// RoleQueries reads and writes role rows.
type RoleQueries struct{ h Handle }

// CreateRoleParams describe a new role.
type CreateRoleParams struct {
	Name        string
	Owner       rbac.RoleOwner
	Description string
}

func scanRole(r rowScanner) (rbac.Role, error) {
	var (
		role  rbac.Role
		owner string
	)
	if err := r.Scan(&role.ID, &role.Name, &owner, &role.Description); err != nil {
		return rbac.Role{}, err
	}
	role.Owner = rbac.RoleOwner(owner)
	return role, nil
}

// Create inserts a role. (owner, name) is unique. An unknown owner is
// rejected before any statement runs.
func (q *RoleQueries) Create(ctx context.Context, p CreateRoleParams) (rbac.Role, error) {
	if !p.Owner.Valid() {
		return rbac.Role{}, fmt.Errorf("roles.create: %w: %q", rbac.ErrUnknownOwner, p.Owner)
	}
	r, err := scanRole(q.h.QueryRowContext(ctx, `
		insert into role (id, name, owner, description)
		values ($1, $2, $3, $4)
		returning `+roleColumns,
		ids.New(), p.Name, string(p.Owner), p.Description))
	return single(r, err, "roles.create", "role %s could not be created", p.Name)
}

// GetByID fetches a role by id.
func (q *RoleQueries) GetByID(ctx context.Context, roleID string) (rbac.Role, error) {
	r, err := scanRole(q.h.QueryRowContext(ctx, `
		select `+roleColumns+`
		from role
		where id = $1`, roleID))
	return single(r, err, "roles.get_by_id", "role %s not found", roleID)
}

// DeleteByID removes a role and returns it. Permission links cascade.
func (q *RoleQueries) DeleteByID(ctx context.Context, roleID string) (rbac.Role, error) {
	r, err := scanRole(q.h.QueryRowContext(ctx, `
		delete from role
		where id = $1
		returning `+roleColumns, roleID))
	return single(r, err, "roles.delete_by_id", "role %s not found", roleID)
}
