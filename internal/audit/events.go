// Package audit records access and user changes in the same transaction as
// the change itself.
package audit

import "time"

// Event type ids. They are seeded into audit_event_type by migrations.
const (
	EventUserCreated            = "user_created"
	EventUserDeactivated        = "user_deactivated"
	EventUserAddedToCompany     = "user_added_to_company"
	EventUserRemovedFromCompany = "user_removed_from_company"
	EventRoleChanged            = "role_changed"
	EventRoleCreated            = "role_created"
	EventRoleDeleted            = "role_deleted"
	EventPermissionsGranted     = "permissions_granted"
	EventPermissionsRevoked     = "permissions_revoked"
	EventSessionsRevoked        = "sessions_revoked"
)

// EventTypes lists every seeded event type id.
var EventTypes = []string{
	EventUserCreated,
	EventUserDeactivated,
	EventUserAddedToCompany,
	EventUserRemovedFromCompany,
	EventRoleChanged,
	EventRoleCreated,
	EventRoleDeleted,
	EventPermissionsGranted,
	EventPermissionsRevoked,
	EventSessionsRevoked,
}

// AccessEvent is a change to what someone may do inside a company.
// RoleID is optional; empty is stored as NULL.
type AccessEvent struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	ActorUserID  string    `json:"actor_user_id"`
	TargetUserID string    `json:"target_user_id"`
	RoleID       string    `json:"role_id,omitempty"`
	EventTypeID  string    `json:"event_type_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// UserEvent is a change to a user account. CompanyID is optional; empty is
// stored as NULL.
type UserEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanyID   string    `json:"company_id,omitempty"`
	ActorUserID string    `json:"actor_user_id"`
	EventTypeID string    `json:"event_type_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}
