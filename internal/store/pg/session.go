package pg

import (
	"context"
	"database/sql"
	"time"

	"rig.dev/identity/internal/identity"
	"rig.dev/identity/internal/ids"
)

const sessionColumns = `id, user_id, issued_at, expires_at, revoked_at`

// SessionQueries reads and writes session rows.
type SessionQueries struct{ h Handle }

// CreateSessionParams describe a new login session.
type CreateSessionParams struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RevokeSessionParams revoke a single session.
type RevokeSessionParams struct {
	SessionID string
	RevokedAt time.Time
}

// RevokeOtherSessionsParams revoke every active session of a user except one.
type RevokeOtherSessionsParams struct {
	UserID        string
	KeepSessionID string
	RevokedAt     time.Time
}

func scanSession(r rowScanner) (identity.Session, error) {
	var (
		s       identity.Session
		revoked sql.NullTime
	)
	if err := r.Scan(&s.ID, &s.UserID, &s.IssuedAt, &s.ExpiresAt, &revoked); err != nil {
		return identity.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// Create opens a session with a random id.
func (q *SessionQueries) Create(ctx context.Context, p CreateSessionParams) (identity.Session, error) {
	s, err := scanSession(q.h.QueryRowContext(ctx, `
		insert into session (id, user_id, issued_at, expires_at)
		values ($1, $2, $3, $4)
		returning `+sessionColumns,
		ids.Opaque(), p.UserID, p.IssuedAt, p.ExpiresAt))
	return single(s, err, "sessions.create", "session for user %s could not be created", p.UserID)
}

// GetActiveByID fetches a session that is neither revoked nor expired.
func (q *SessionQueries) GetActiveByID(ctx context.Context, sessionID string) (identity.Session, error) {
	s, err := scanSession(q.h.QueryRowContext(ctx, `
		select `+sessionColumns+`
		from session
		where id = $1
		  and revoked_at is null
		  and expires_at > now()`, sessionID))
	return single(s, err, "sessions.get_active_by_id", "active session %s not found", sessionID)
}

// ListActiveByUser returns the user's active sessions, newest first.
func (q *SessionQueries) ListActiveByUser(ctx context.Context, userID string) ([]identity.Session, error) {
	rows, err := q.h.QueryContext(ctx, `
		select `+sessionColumns+`
		from session
		where user_id = $1
		  and revoked_at is null
		  and expires_at > now()
		order by issued_at desc`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSession)
}

// Revoke marks a session revoked. An already revoked session keeps its
// original revoked_at; revoking it again is a no-op.
func (q *SessionQueries) Revoke(ctx context.Context, p RevokeSessionParams) error {
	_, err := q.h.ExecContext(ctx, `
		update session
		set revoked_at = $1
		where id = $2
		  and revoked_at is null`, p.RevokedAt, p.SessionID)
	return err
}

// RevokeOthers revokes every unrevoked session of the user except
// KeepSessionID and reports how many were revoked.
func (q *SessionQueries) RevokeOthers(ctx context.Context, p RevokeOtherSessionsParams) (int64, error) {
	res, err := q.h.ExecContext(ctx, `
		update session
		set revoked_at = $1
		where user_id = $2
		  and id <> $3
		  and revoked_at is null`, p.RevokedAt, p.UserID, p.KeepSessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
