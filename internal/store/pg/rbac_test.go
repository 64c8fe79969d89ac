package pg

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rig.dev/identity/internal/rbac"
	"rig.dev/identity/internal/store"
)

var (
	roleCols           = []string{"id", "name", "owner", "description"}
	permissionCols     = []string{"id", "name", "description"}
	rolePermissionCols = []string{"role_id", "permission_id"}
	companyUserCols    = []string{"user_id", "company_id", "role_id"}
)

func TestCompaniesCreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)

	mock.ExpectQuery("insert into company").
		WithArgs(sqlmock.AnyArg(), "Acme", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow("c1", "Acme", t0))
	mock.ExpectQuery("from company where id = ").
		WithArgs("c404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	c, err := q.RBAC.Companies.Create(context.Background(), CreateCompanyParams{Name: "Acme", CreatedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, rbac.Company{ID: "c1", Name: "Acme", CreatedAt: t0}, c)

	_, err = q.RBAC.Companies.GetByID(context.Background(), "c404")
	assert.ErrorIs(t, err, store.ErrNullData)
	expectationsMet(t, mock)
}

func TestRolesCreateGetDelete(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)

	mock.ExpectQuery("insert into role").
		WithArgs(sqlmock.AnyArg(), "editor", "company", "Can edit").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r1", "editor", "company", "Can edit"))
	mock.ExpectQuery("from role where id = ").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r1", "editor", "company", "Can edit"))
	mock.ExpectQuery("delete from role where id = ").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r1", "editor", "company", "Can edit"))
	mock.ExpectQuery("delete from role where id = ").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roleCols))

	ctx := context.Background()
	created, err := q.RBAC.Roles.Create(ctx, CreateRoleParams{Name: "editor", Owner: rbac.OwnerCompany, Description: "Can edit"})
	require.NoError(t, err)
	assert.Equal(t, rbac.OwnerCompany, created.Owner)

	got, err := q.RBAC.Roles.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	deleted, err := q.RBAC.Roles.DeleteByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	_, err = q.RBAC.Roles.DeleteByID(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNullData)
	expectationsMet(t, mock)
}

func TestRolesCreateRejectsUnknownOwner(t *testing.T) {
	db, mock := newMock(t)

	_, err := Bind(db).RBAC.Roles.Create(context.Background(), CreateRoleParams{Name: "editor", Owner: "tenant"})
	require.ErrorIs(t, err, rbac.ErrUnknownOwner)
	assert.Contains(t, err.Error(), "roles.create")
	expectationsMet(t, mock)
}

func TestPermissionsListOrderedByName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("from permission order by name").
		WillReturnRows(sqlmock.NewRows(permissionCols).
			AddRow("p1", rbac.PermSettingsRead, "").
			AddRow("p2", rbac.PermUserRead, ""))

	perms, err := Bind(db).RBAC.Permissions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, rbac.PermSettingsRead, perms[0].Name)
}

func TestRolePermissionsEmptyInputTouchesNothing(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)

	_, err := q.RBAC.RolePermissions.Add(context.Background(), "r1", nil)
	require.ErrorIs(t, err, store.ErrEmptyInput)
	assert.Contains(t, err.Error(), "role_permissions.add")

	_, err = q.RBAC.RolePermissions.Remove(context.Background(), "r1", []string{})
	require.ErrorIs(t, err, store.ErrEmptyInput)

	expectationsMet(t, mock)
}

func TestRolePermissionsAddIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)
	ids := []string{"p1", "p2"}

	mock.ExpectQuery("insert into role_permission .* on conflict do nothing").
		WithArgs("r1", stringsArg(ids)).
		WillReturnRows(sqlmock.NewRows(rolePermissionCols).AddRow("r1", "p1").AddRow("r1", "p2"))
	mock.ExpectQuery("insert into role_permission .* on conflict do nothing").
		WithArgs("r1", stringsArg(ids)).
		WillReturnRows(sqlmock.NewRows(rolePermissionCols))

	first, err := q.RBAC.RolePermissions.Add(context.Background(), "r1", ids)
	require.NoError(t, err)
	assert.Equal(t, []rbac.RolePermission{{RoleID: "r1", PermissionID: "p1"}, {RoleID: "r1", PermissionID: "p2"}}, first)

	second, err := q.RBAC.RolePermissions.Add(context.Background(), "r1", ids)
	require.NoError(t, err)
	assert.Empty(t, second)
	expectationsMet(t, mock)
}

func TestRolePermissionsRemoveReturnsRemoved(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("delete from role_permission where role_id = .* and permission_id = any").
		WithArgs("r1", stringsArg{"p1", "p9"}).
		WillReturnRows(sqlmock.NewRows(rolePermissionCols).AddRow("r1", "p1"))

	removed, err := Bind(db).RBAC.RolePermissions.Remove(context.Background(), "r1", []string{"p1", "p9"})
	require.NoError(t, err)
	assert.Equal(t, []rbac.RolePermission{{RoleID: "r1", PermissionID: "p1"}}, removed)
}

func TestGetRoleWithPermissions(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)
	ctx := context.Background()

	mock.ExpectQuery("from role where id = ").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r1", "admin", "system", ""))
	mock.ExpectQuery("join permission p on p.id = rp.permission_id .* order by p.name").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(permissionCols).
			AddRow("p4", rbac.PermUserManage, "").
			AddRow("p1", rbac.PermUserRead, ""))

	set, err := q.RBAC.RolePermissions.GetRoleWithPermissions(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "admin", set.Role.Name)
	require.Len(t, set.Permissions, 2)
	assert.Equal(t, rbac.PermUserManage, set.Permissions[0].Name)
	expectationsMet(t, mock)
}

func TestGetRoleWithPermissionsNoPermissions(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("from role where id = ").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r2", "viewer", "company", ""))
	mock.ExpectQuery("from role_permission rp").
		WillReturnRows(sqlmock.NewRows(permissionCols))

	set, err := Bind(db).RBAC.RolePermissions.GetRoleWithPermissions(context.Background(), "r2")
	require.NoError(t, err)
	assert.NotNil(t, set.Permissions)
	assert.Empty(t, set.Permissions)
}

func TestGetRoleWithPermissionsMissingRoleStopsEarly(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("from role where id = ").
		WithArgs("r404").
		WillReturnRows(sqlmock.NewRows(roleCols))

	_, err := Bind(db).RBAC.RolePermissions.GetRoleWithPermissions(context.Background(), "r404")
	require.ErrorIs(t, err, store.ErrNullData)
	assert.Contains(t, err.Error(), "r404")
	expectationsMet(t, mock)
}

func TestCompanyUsersLifecycle(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)
	ctx := context.Background()
	member := rbac.CompanyUser{UserID: "u1", CompanyID: "c1", RoleID: "r1"}

	mock.ExpectQuery("insert into company_user").
		WithArgs("u1", "c1", "r1").
		WillReturnRows(sqlmock.NewRows(companyUserCols).AddRow("u1", "c1", "r1"))
	mock.ExpectQuery("from company_user where user_id = .* order by company_id limit 1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(companyUserCols).AddRow("u1", "c1", "r1"))
	mock.ExpectQuery("update company_user set role_id").
		WithArgs("u1", "c1", "r2").
		WillReturnRows(sqlmock.NewRows(companyUserCols).AddRow("u1", "c1", "r2"))
	mock.ExpectQuery("delete from company_user").
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows(companyUserCols).AddRow("u1", "c1", "r2"))
	mock.ExpectQuery("from company_user where user_id = .* and company_id = ").
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows(companyUserCols))

	added, err := q.RBAC.CompanyUsers.Add(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, member, added)

	byUser, err := q.RBAC.CompanyUsers.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, member, byUser)

	updated, err := q.RBAC.CompanyUsers.UpdateRole(ctx, rbac.CompanyUser{UserID: "u1", CompanyID: "c1", RoleID: "r2"})
	require.NoError(t, err)
	assert.Equal(t, "r2", updated.RoleID)

	removed, err := q.RBAC.CompanyUsers.Remove(ctx, RemoveUserFromCompanyParams{UserID: "u1", CompanyID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "r2", removed.RoleID)

	_, err = q.RBAC.CompanyUsers.Get(ctx, "u1", "c1")
	assert.ErrorIs(t, err, store.ErrNullData)
	expectationsMet(t, mock)
}

func TestCompanyUsersMissingMembershipIsNullData(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)
	ctx := context.Background()

	mock.ExpectQuery("update company_user").WillReturnRows(sqlmock.NewRows(companyUserCols))
	mock.ExpectQuery("delete from company_user").WillReturnRows(sqlmock.NewRows(companyUserCols))
	mock.ExpectQuery("from company_user where user_id").WillReturnRows(sqlmock.NewRows(companyUserCols))

	_, err := q.RBAC.CompanyUsers.UpdateRole(ctx, rbac.CompanyUser{UserID: "u1", CompanyID: "c9", RoleID: "r1"})
	assert.ErrorIs(t, err, store.ErrNullData)
	_, err = q.RBAC.CompanyUsers.Remove(ctx, RemoveUserFromCompanyParams{UserID: "u1", CompanyID: "c9"})
	assert.ErrorIs(t, err, store.ErrNullData)
	_, err = q.RBAC.CompanyUsers.GetByUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNullData)
	expectationsMet(t, mock)
}

func TestAuditEventsListScansNullableColumns(t *testing.T) {
	db, mock := newMock(t)
	q := Bind(db)
	ctx := context.Background()

	mock.ExpectQuery("from access_audit_event where company_id = ").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "actor_user_id", "target_user_id", "role_id", "event_type_id", "occurred_at"}).
			AddRow("e1", "c1", "admin", "u1", nil, "user_removed_from_company", t0))
	mock.ExpectQuery("from user_audit_event where user_id = ").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_id", "actor_user_id", "event_type_id", "occurred_at"}).
			AddRow("e2", "u1", nil, "admin", "user_created", t0))

	access, err := q.Audit.Events.ListAccessByCompany(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, access, 1)
	assert.Empty(t, access[0].RoleID)

	users, err := q.Audit.Events.ListUserByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].CompanyID)
	assert.Equal(t, "admin", users[0].ActorUserID)
	expectationsMet(t, mock)
}

func TestBindSharesHandle(t *testing.T) {
	db, _ := newMock(t)
	q := Bind(db)
	assert.Same(t, Handle(db), q.Identity.Users.h)
	assert.Same(t, Handle(db), q.RBAC.CompanyUsers.h)
	assert.Same(t, Handle(db), q.Audit.Events.h)
}
