package pg

import (
	"context"
	"time"

	"rig.dev/identity/internal/ids"
	"rig.dev/identity/internal/rbac"
)

// CompanyQueries reads and writes company rows.
type CompanyQueries struct{ h Handle }

// CreateCompanyParams describe a new company.
type CreateCompanyParams struct {
	Name      string
	CreatedAt time.Time
}

func scanCompany(r rowScanner) (rbac.Company, error) {
	var c rbac.Company
	err := r.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

// Create inserts a company.
func (q *CompanyQueries) Create(ctx context.Context, p CreateCompanyParams) (rbac.Company, error) {
	c, err := scanCompany(q.h.QueryRowContext(ctx, `
		insert into company (id, name, created_at)
		values ($1, $2, $3)
		returning id, name, created_at`,
		ids.New(), p.Name, p.CreatedAt))
	return single(c, err, "companies.create", "company %s could not be created", p.Name)
}

// GetByID fetches a company by id.
func (q *CompanyQueries) GetByID(ctx context.Context, companyID string) (rbac.Company, error) {
	c, err := scanCompany(q.h.QueryRowContext(ctx, `
		select id, name, created_at
		from company
		where id = $1`, companyID))
	return single(c, err, "companies.get_by_id", "company %s not found", companyID)
}
