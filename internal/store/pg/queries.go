// Package pg implements the query modules, connection provider and client
// entry point on PostgreSQL.
//
// Query modules are written once against Handle and work the same whether
// they are bound to the pool or to an open transaction:
//
//	err := client.Transaction(ctx, func(ctx context.Context, q *pg.Queries, tx *sql.Tx) error {
//	    _, err := q.RBAC.RolePermissions.Add(ctx, roleID, permissionIDs)
//	    return err
//	})
package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"rig.dev/identity/internal/store"
)

// Handle issues statements. *sql.DB and *sql.Tx both satisfy it.
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Handle = (*sql.DB)(nil)
	_ Handle = (*sql.Tx)(nil)
)

// Queries is every query module bound to one Handle.
type Queries struct {
	Identity IdentityQueries
	RBAC     RBACQueries
	Audit    AuditQueries
}

// IdentityQueries groups user and session modules.
type IdentityQueries struct {
	Users    *UserQueries
	Sessions *SessionQueries
}

// RBACQueries groups company, role and permission modules.
type RBACQueries struct {
	Companies       *CompanyQueries
	Roles           *RoleQueries
	Permissions     *PermissionQueries
	RolePermissions *RolePermissionQueries
	CompanyUsers    *CompanyUserQueries
}

// AuditQueries exposes read access to audit rows. There is no write path
// here; rows are only inserted by the audit wrappers.
type AuditQueries struct {
	Events *AuditEventQueries
}

// Bind returns all query modules with h pre-supplied. It performs no I/O.
func Bind(h Handle) *Queries {
	return &Queries{
		Identity: IdentityQueries{
			Users:    &UserQueries{h: h},
			Sessions: &SessionQueries{h: h},
		},
		RBAC: RBACQueries{
			Companies:       &CompanyQueries{h: h},
			Roles:           &RoleQueries{h: h},
			Permissions:     &PermissionQueries{h: h},
			RolePermissions: &RolePermissionQueries{h: h},
			CompanyUsers:    &CompanyUserQueries{h: h},
		},
		Audit: AuditQueries{
			Events: &AuditEventQueries{h: h},
		},
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// single maps sql.ErrNoRows onto a NullData error for op.
func single[T any](v T, err error, op, format string, args ...any) (T, error) {
	var zero T
	if errors.Is(err, sql.ErrNoRows) {
		return zero, store.NullData(op, format, args...)
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

// collect scans every row with scan. An empty result is an empty, non-nil slice.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const (
	pgErrForeignKeyViolation = "23503"
	pgErrUniqueViolation     = "23505"
)

// IsUniqueViolation reports whether err came from a unique constraint, such
// as a duplicate user email or role name.
func IsUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgErrUniqueViolation
}

// IsForeignKeyViolation reports whether err references a missing row.
func IsForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgErrForeignKeyViolation
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
