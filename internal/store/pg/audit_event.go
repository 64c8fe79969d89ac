package pg

import (
	"context"
	"database/sql"

	"rig.dev/identity/internal/audit"
)

// AuditEventQueries read audit rows.
type AuditEventQueries struct{ h Handle }

func scanAccessEvent(r rowScanner) (audit.AccessEvent, error) {
	var (
		ev     audit.AccessEvent
		roleID sql.NullString
	)
	if err := r.Scan(&ev.ID, &ev.CompanyID, &ev.ActorUserID, &ev.TargetUserID, &roleID, &ev.EventTypeID, &ev.OccurredAt); err != nil {
		return audit.AccessEvent{}, err
	}
	ev.RoleID = roleID.String
	return ev, nil
}

func scanUserEvent(r rowScanner) (audit.UserEvent, error) {
	var (
		ev        audit.UserEvent
		companyID sql.NullString
	)
	if err := r.Scan(&ev.ID, &ev.UserID, &companyID, &ev.ActorUserID, &ev.EventTypeID, &ev.OccurredAt); err != nil {
		return audit.UserEvent{}, err
	}
	ev.CompanyID = companyID.String
	return ev, nil
}

// ListAccessByCompany returns the company's access events, oldest first.
func (q *AuditEventQueries) ListAccessByCompany(ctx context.Context, companyID string) ([]audit.AccessEvent, error) {
	rows, err := q.h.QueryContext(ctx, `
		select id, company_id, actor_user_id, target_user_id, role_id, event_type_id, occurred_at
		from access_audit_event
		where company_id = $1
		order by occurred_at, id`, companyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccessEvent)
}

// ListUserByUser returns the events recorded against a user, oldest first.
func (q *AuditEventQueries) ListUserByUser(ctx context.Context, userID string) ([]audit.UserEvent, error) {
	rows, err := q.h.QueryContext(ctx, `
		select id, user_id, company_id, actor_user_id, event_type_id, occurred_at
		from user_audit_event
		where user_id = $1
		order by occurred_at, id`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUserEvent)
}
