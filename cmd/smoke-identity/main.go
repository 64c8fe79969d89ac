package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rig.dev/identity/internal/app"
	"rig.dev/identity/internal/audit"
	"rig.dev/identity/internal/config"
	"rig.dev/identity/internal/identity"
	"rig.dev/identity/internal/ids"
	"rig.dev/identity/internal/obs"
	"rig.dev/identity/internal/rbac"
	"rig.dev/identity/internal/store"
	"rig.dev/identity/internal/store/pg"
)

// smoke-identity runs the identity flows against a migrated and seeded
// database and exits non-zero on the first broken expectation.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	a := app.New(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = run(ctx, a.Client)
	cancel()
	_ = a.Close()
	if err != nil {
		a.Log.Critical("identity smoke test failed", obs.Fields{"error": err.Error()})
		os.Exit(1)
	}
	fmt.Println("identity smoke test passed")
}

func run(ctx context.Context, client *pg.Client) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tag := strings.ToLower(ids.New())

	admin, err := createUser(ctx, client, "admin-"+tag+"@smoke.test", now)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	member, err := createUser(ctx, client, "member-"+tag+"@smoke.test", now)
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	if !member.IsActive || member.DisplayName != "smoke" || !member.CreatedAt.Equal(now) {
		return fmt.Errorf("created user does not echo input: %+v", member)
	}

	if err := checkSessionRevocation(ctx, client, member.ID, now); err != nil {
		return err
	}

	company, err := pg.Run(ctx, client, func(ctx context.Context, q *pg.Queries) (rbac.Company, error) {
		return q.RBAC.Companies.Create(ctx, pg.CreateCompanyParams{Name: "smoke-" + tag, CreatedAt: now})
	})
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	viewer, err := createRole(ctx, client, "viewer-"+tag)
	if err != nil {
		return err
	}
	editor, err := createRole(ctx, client, "editor-"+tag)
	if err != nil {
		return err
	}

	err = client.Run(ctx, func(ctx context.Context, q *pg.Queries) error {
		_, err := q.RBAC.RolePermissions.Add(ctx, viewer.ID, nil)
		return err
	})
	if !errors.Is(err, store.ErrEmptyInput) {
		return fmt.Errorf("empty permission add: want EMPTY_INPUT, got %v", err)
	}

	if err := checkAuditedRoleChange(ctx, client, company.ID, admin.ID, member.ID, viewer.ID, editor.ID, now); err != nil {
		return err
	}
	return checkConcurrentGrants(ctx, client, viewer.ID, editor.ID)
}

func createUser(ctx context.Context, client *pg.Client, email string, now time.Time) (identity.User, error) {
	return pg.Run(ctx, client, func(ctx context.Context, q *pg.Queries) (identity.User, error) {
		return q.Identity.Users.Create(ctx, pg.CreateUserParams{Email: email, DisplayName: "smoke", CreatedAt: now})
	})
}

func createRole(ctx context.Context, client *pg.Client, name string) (rbac.Role, error) {
	role, err := pg.Run(ctx, client, func(ctx context.Context, q *pg.Queries) (rbac.Role, error) {
		return q.RBAC.Roles.Create(ctx, pg.CreateRoleParams{Name: name, Owner: rbac.OwnerCompany})
	})
	if err != nil {
		return rbac.Role{}, fmt.Errorf("create role %s: %w", name, err)
	}
	return role, nil
}

func checkSessionRevocation(ctx context.Context, client *pg.Client, userID string, now time.Time) error {
	var sessions [2]identity.Session
	err := client.Run(ctx, func(ctx context.Context, q *pg.Queries) error {
		for i := range sessions {
			s, err := q.Identity.Sessions.Create(ctx, pg.CreateSessionParams{UserID: userID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			sessions[i] = s
		}
		if err := q.Identity.Sessions.Revoke(ctx, pg.RevokeSessionParams{SessionID: sessions[0].ID, RevokedAt: now.Add(time.Minute)}); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		if _, err := q.Identity.Sessions.GetActiveByID(ctx, sessions[0].ID); !errors.Is(err, store.ErrNullData) {
			return fmt.Errorf("revoked session: want NULL_DATA, got %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ev := audit.UserEvent{UserID: userID, ActorUserID: userID, EventTypeID: audit.EventSessionsRevoked, OccurredAt: now}
	revoked, err := pg.Transaction(ctx, client, func(ctx context.Context, q *pg.Queries, tx *sql.Tx) (int64, error) {
		return audit.WithUserAudit(ctx, tx, ev, func(*sql.Tx) (int64, error) {
			return q.Identity.Sessions.RevokeOthers(ctx, pg.RevokeOtherSessionsParams{
				UserID:        userID,
				KeepSessionID: "none",
				RevokedAt:     now.Add(2 * time.Minute),
			})
		})
	})
	if err != nil {
		return fmt.Errorf("revoke other sessions: %w", err)
	}
	if revoked != 1 {
		return fmt.Errorf("revoked %d sessions, want 1", revoked)
	}

	return client.Run(ctx, func(ctx context.Context, q *pg.Queries) error {
		active, err := q.Identity.Sessions.ListActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(active) != 0 {
			return fmt.Errorf("%d sessions still active", len(active))
		}
		events, err := q.Audit.Events.ListUserByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(events) != 1 || events[0].EventTypeID != audit.EventSessionsRevoked {
			return fmt.Errorf("user audit events = %+v, want one %s", events, audit.EventSessionsRevoked)
		}
		return nil
	})
}

func checkAuditedRoleChange(ctx context.Context, client *pg.Client, companyID, actorID, targetID, fromRole, toRole string, now time.Time) error {
	err := client.Transaction(ctx, func(ctx context.Context, q *pg.Queries, tx *sql.Tx) error {
		ev := audit.AccessEvent{
			CompanyID:    companyID,
			ActorUserID:  actorID,
			TargetUserID: targetID,
			RoleID:       fromRole,
			EventTypeID:  audit.EventUserAddedToCompany,
			OccurredAt:   now,
		}
		_, err := audit.WithAccessAudit(ctx, tx, ev, func(*sql.Tx) (rbac.CompanyUser, error) {
			return q.RBAC.CompanyUsers.Add(ctx, rbac.CompanyUser{UserID: targetID, CompanyID: companyID, RoleID: fromRole})
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	changedAt := now.Add(time.Second)
	err = client.Transaction(ctx, func(ctx context.Context, q *pg.Queries, tx *sql.Tx) error {
		ev := audit.AccessEvent{
			CompanyID:    companyID,
			ActorUserID:  actorID,
			TargetUserID: targetID,
			RoleID:       toRole,
			EventTypeID:  audit.EventRoleChanged,
			OccurredAt:   changedAt,
		}
		_, err := audit.WithAccessAudit(ctx, tx, ev, func(*sql.Tx) (rbac.CompanyUser, error) {
			return q.RBAC.CompanyUsers.UpdateRole(ctx, rbac.CompanyUser{UserID: targetID, CompanyID: companyID, RoleID: toRole})
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	return client.Run(ctx, func(ctx context.Context, q *pg.Queries) error {
		cu, err := q.RBAC.CompanyUsers.Get(ctx, targetID, companyID)
		if err != nil {
			return err
		}
		if cu.RoleID != toRole {
			return fmt.Errorf("membership role = %s, want %s", cu.RoleID, toRole)
		}
		events, err := q.Audit.Events.ListAccessByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		changes := 0
		for _, ev := range events {
			if ev.EventTypeID == audit.EventRoleChanged {
				changes++
				if !ev.OccurredAt.Equal(changedAt) {
					return fmt.Errorf("role_changed occurred_at = %s, want %s", ev.OccurredAt, changedAt)
				}
			}
		}
		if changes != 1 {
			return fmt.Errorf("role_changed events = %d, want 1", changes)
		}
		return nil
	})
}

func checkConcurrentGrants(ctx context.Context, client *pg.Client, roleIDs ...string) error {
	perms, err := pg.Run(ctx, client, func(ctx context.Context, q *pg.Queries) ([]rbac.Permission, error) {
		return q.RBAC.Permissions.List(ctx)
	})
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}
	if len(perms) == 0 {
		return errors.New("permission vocabulary is empty; run migrate seed first")
	}
	permIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		permIDs = append(permIDs, p.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, roleID := range roleIDs {
		roleID := roleID
		g.Go(func() error {
			return client.Transaction(gctx, func(ctx context.Context, q *pg.Queries, _ *sql.Tx) error {
				_, err := q.RBAC.RolePermissions.Add(ctx, roleID, permIDs)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("concurrent grants: %w", err)
	}

	return client.Run(ctx, func(ctx context.Context, q *pg.Queries) error {
		for _, roleID := range roleIDs {
			set, err := q.RBAC.RolePermissions.GetRoleWithPermissions(ctx, roleID)
			if err != nil {
				return err
			}
			if len(set.Permissions) != len(permIDs) {
				return fmt.Errorf("role %s has %d permissions, want %d", roleID, len(set.Permissions), len(permIDs))
			}
		}
		if _, err := q.RBAC.RolePermissions.GetRoleWithPermissions(ctx, "missing-"+ids.New()); !errors.Is(err, store.ErrNullData) {
			return fmt.Errorf("missing role: want NULL_DATA, got %v", err)
		}
		return nil
	})
}
