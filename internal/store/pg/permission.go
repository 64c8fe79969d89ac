package pg

import (
	"context"

	"rig.dev/identity/internal/rbac"
)

// PermissionQueries reads the permission catalogue. Permissions are seeded
// by migrations and never written at runtime.
type PermissionQueries struct{ h Handle }

func scanPermission(r rowScanner) (rbac.Permission, error) {
	var p rbac.Permission
	err := r.Scan(&p.ID, &p.Name, &p.Description)
	return p, err
}

// List returns every permission ordered by name.
func (q *PermissionQueries) List(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := q.h.QueryContext(ctx, `
		select id, name, description
		from permission
		order by name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPermission)
}
