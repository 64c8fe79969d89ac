// Package identity holds the user and session representations returned by
// the query layer.
package identity

import "time"

// User is an application account. Users are deactivated, never deleted.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
}

// Session is a login session.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"` // nil when not revoked
}

// Active reports whether the session is unrevoked and unexpired at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
