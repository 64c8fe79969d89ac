// Package rbac holds the company, role and permission representations
// returned by the query layer.
package rbac

import (
	"errors"
	"time"
)

// ErrUnknownOwner is returned for a role owner other than system or company.
var ErrUnknownOwner = errors.New("rbac: unknown role owner")

// RoleOwner scopes a role either to the whole system or to a company.
type RoleOwner string

const (
	OwnerSystem  RoleOwner = "system"
	OwnerCompany RoleOwner = "company"
)

// Valid reports whether o is a known owner.
func (o RoleOwner) Valid() bool {
	return o == OwnerSystem || o == OwnerCompany
}

// Company is a tenant.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role groups permissions.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       RoleOwner `json:"owner"`
	Description string    `json:"description"`
}

// Permission is an entry of the system-owned permission vocabulary.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RolePermission links a role to a permission.
type RolePermission struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
}

// RolePermissionSet is a role together with every permission it holds.
type RolePermissionSet struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// CompanyUser is a user's single role within a company.
type CompanyUser struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	RoleID    string `json:"role_id"`
}
