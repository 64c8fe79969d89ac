package pg

import (
	"context"

	"rig.dev/identity/internal/rbac"
)

const companyUserColumns = `user_id, company_id, role_id`

// CompanyUserQueries manage company membership.
type CompanyUserQueries struct{ h Handle }

// RemoveUserFromCompanyParams identify the membership to remove.
type RemoveUserFromCompanyParams struct {
	UserID    string
	CompanyID string
}

func scanCompanyUser(r rowScanner) (rbac.CompanyUser, error) {
	var cu rbac.CompanyUser
	err := r.Scan(&cu.UserID, &cu.CompanyID, &cu.RoleID)
	return cu, err
}

// Add makes the user a member of the company with the given role.
func (q *CompanyUserQueries) Add(ctx context.Context, cu rbac.CompanyUser) (rbac.CompanyUser, error) {
	out, err := scanCompanyUser(q.h.QueryRowContext(ctx, `
		insert into company_user (user_id, company_id, role_id)
		values ($1, $2, $3)
		returning `+companyUserColumns,
		cu.UserID, cu.CompanyID, cu.RoleID))
	return single(out, err, "company_users.add", "user %s could not be added to company %s", cu.UserID, cu.CompanyID)
}

// GetByUser returns one membership of the user. Users with several
// memberships get the one with the lowest company id.
func (q *CompanyUserQueries) GetByUser(ctx context.Context, userID string) (rbac.CompanyUser, error) {
	out, err := scanCompanyUser(q.h.QueryRowContext(ctx, `
		select `+companyUserColumns+`
		from company_user
		where user_id = $1
		order by company_id
		limit 1`, userID))
	return single(out, err, "company_users.get_by_user", "user %s has no company", userID)
}

// Get fetches the membership of userID in companyID.
func (q *CompanyUserQueries) Get(ctx context.Context, userID, companyID string) (rbac.CompanyUser, error) {
	out, err := scanCompanyUser(q.h.QueryRowContext(ctx, `
		select `+companyUserColumns+`
		from company_user
		where user_id = $1
		  and company_id = $2`, userID, companyID))
	return single(out, err, "company_users.get", "user %s is not a member of company %s", userID, companyID)
}

// UpdateRole changes the role of an existing membership.
func (q *CompanyUserQueries) UpdateRole(ctx context.Context, cu rbac.CompanyUser) (rbac.CompanyUser, error) {
	out, err := scanCompanyUser(q.h.QueryRowContext(ctx, `
		update company_user
		set role_id = $3
		where user_id = $1
		  and company_id = $2
		returning `+companyUserColumns,
		cu.UserID, cu.CompanyID, cu.RoleID))
	return single(out, err, "company_users.update_role", "user %s is not a member of company %s", cu.UserID, cu.CompanyID)
}

// Remove deletes the membership and returns it.
func (q *CompanyUserQueries) Remove(ctx context.Context, p RemoveUserFromCompanyParams) (rbac.CompanyUser, error) {
	out, err := scanCompanyUser(q.h.QueryRowContext(ctx, `
		delete from company_user
		where user_id = $1
		  and company_id = $2
		returning `+companyUserColumns,
		p.UserID, p.CompanyID))
	return single(out, err, "company_users.remove", "user %s is not a member of company %s", p.UserID, p.CompanyID)
}
