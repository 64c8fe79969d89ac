package audit

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rig.dev/identity/internal/ids"
	"rig.dev/identity/internal/obs"
)

var (
	// ErrNoTransaction is returned when a wrapper is handed a nil transaction.
	ErrNoTransaction = errors.New("audit: transaction is required")
	// ErrNoEventType is returned when the event carries no event type id.
	ErrNoEventType = errors.New("audit: event type is required")
	// ErrNoActor is returned when the event does not name who made the change.
	ErrNoActor = errors.New("audit: actor is required")
)

// WithAccessAudit runs action on tx and then records ev on the same tx.
// An event without a type or an actor is rejected before action runs.
// When action fails nothing is recorded and its error is returned as is.
// When recording fails the action result is discarded and the caller's
// transaction is expected to roll back. The row is counted in metrics only
// once the enclosing pg.Client transaction commits.
func WithAccessAudit[T any](ctx context.Context, tx *sql.Tx, ev AccessEvent, action func(*sql.Tx) (T, error)) (T, error) {
	var zero T
	if tx == nil {
		return zero, ErrNoTransaction
	}
	if err := validate(ev.EventTypeID, ev.ActorUserID); err != nil {
		return zero, err
	}
	result, err := action(tx)
	if err != nil {
		return zero, err
	}
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	if _, err := tx.ExecContext(ctx, `
		insert into access_audit_event (id, company_id, actor_user_id, target_user_id, role_id, event_type_id, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.CompanyID, ev.ActorUserID, ev.TargetUserID, nullIfEmpty(ev.RoleID), ev.EventTypeID, ev.OccurredAt); err != nil {
		return zero, err
	}
	obs.AuditEventWritten(ctx, obs.AuditAccess)
	return result, nil
}

// WithUserAudit is WithAccessAudit for user account events.
func WithUserAudit[T any](ctx context.Context, tx *sql.Tx, ev UserEvent, action func(*sql.Tx) (T, error)) (T, error) {
	var zero T
	if tx == nil {
		return zero, ErrNoTransaction
	}
	if err := validate(ev.EventTypeID, ev.ActorUserID); err != nil {
		return zero, err
	}
	result, err := action(tx)
	if err != nil {
		return zero, err
	}
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	if _, err := tx.ExecContext(ctx, `
		insert into user_audit_event (id, user_id, company_id, actor_user_id, event_type_id, occurred_at)
		values ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.UserID, nullIfEmpty(ev.CompanyID), ev.ActorUserID, ev.EventTypeID, ev.OccurredAt); err != nil {
		return zero, err
	}
	obs.AuditEventWritten(ctx, obs.AuditUser)
	return result, nil
}

func validate(eventTypeID, actorUserID string) error {
	if strings.TrimSpace(eventTypeID) == "" {
		return ErrNoEventType
	}
	if strings.TrimSpace(actorUserID) == "" {
		return ErrNoActor
	}
	return nil
}

func nullIfEmpty(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}
