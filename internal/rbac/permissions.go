package rbac

// Permission vocabulary. Rows are seeded by migration; tenants never create them.
const (
	PermUserRead   = "user:read"
	PermUserInvite = "user:invite"
	PermUserManage = "user:manage"

	PermSettingsRead  = "settings:read"
	PermSettingsWrite = "settings:write"
)

// BuiltinPermissions lists the vocabulary in seed order.
var BuiltinPermissions = []Permission{
	{Name: PermUserRead, Description: "Read users of a company"},
	{Name: PermUserInvite, Description: "Invite users into a company"},
	{Name: PermUserManage, Description: "Change roles and remove users"},
	{Name: PermSettingsRead, Description: "Read company settings"},
	{Name: PermSettingsWrite, Description: "Change company settings"},
}
