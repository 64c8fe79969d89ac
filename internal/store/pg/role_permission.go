package pg

import (
	"context"

	"rig.dev/identity/internal/rbac"
	"rig.dev/identity/internal/store"
)

// RolePermissionQueries manage the role to permission association.
type RolePermissionQueries struct{ h Handle }

func scanRolePermission(r rowScanner) (rbac.RolePermission, error) {
	var rp rbac.RolePermission
	err := r.Scan(&rp.RoleID, &rp.PermissionID)
	return rp, err
}

// Add links permissionIDs to roleID in one statement. Pairs that already
// exist are skipped, so only newly created links are returned.
func (q *RolePermissionQueries) Add(ctx context.Context, roleID string, permissionIDs []string) ([]rbac.RolePermission, error) {
	if len(permissionIDs) == 0 {
		return nil, store.EmptyInput("role_permissions.add")
	}
	rows, err := q.h.QueryContext(ctx, `
		insert into role_permission (role_id, permission_id)
		select $1, unnest($2::text[])
		on conflict do nothing
		returning role_id, permission_id`, roleID, permissionIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRolePermission)
}

// Remove unlinks permissionIDs from roleID and returns the removed links.
func (q *RolePermissionQueries) Remove(ctx context.Context, roleID string, permissionIDs []string) ([]rbac.RolePermission, error) {
	if len(permissionIDs) == 0 {
		return nil, store.EmptyInput("role_permissions.remove")
	}
	rows, err := q.h.QueryContext(ctx, `
		delete from role_permission
		where role_id = $1
		  and permission_id = any($2::text[])
		returning role_id, permission_id`, roleID, permissionIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRolePermission)
}

// GetRoleWithPermissions returns a role and its permissions ordered by name.
// A role without permissions yields an empty list.
func (q *RolePermissionQueries) GetRoleWithPermissions(ctx context.Context, roleID string) (rbac.RolePermissionSet, error) {
	role, err := scanRole(q.h.QueryRowContext(ctx, `
		select `+roleColumns+`
		from role
		where id = $1`, roleID))
	role, err = single(role, err, "role_permissions.get_role_with_permissions", "role %s not found", roleID)
	if err != nil {
		return rbac.RolePermissionSet{}, err
	}

	rows, err := q.h.QueryContext(ctx, `
		select p.id, p.name, p.description
		from role_permission rp
		join permission p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.name`, roleID)
	if err != nil {
		return rbac.RolePermissionSet{}, err
	}
	perms, err := collect(rows, scanPermission)
	if err != nil {
		return rbac.RolePermissionSet{}, err
	}
	return rbac.RolePermissionSet{Role: role, Permissions: perms}, nil
}
