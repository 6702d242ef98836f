package repository

import (
	"context"
	"fmt"

	"github.com/bookwell/bookwell/internal/reqctx"
)

// tenantScope is the interceptor seam embedded by repositories over
// tenant-bounded tables (bookings, event_types, resources). When the
// request context carries an organization id, reads gain an organization
// predicate and creates have the id injected; without one (system-wide
// background jobs) it is a no-op and callers pass their own scope.
// booking_audit_logs is deliberately unscoped: audit entries follow
// their parent booking.
type tenantScope struct{}

// readClause returns a predicate fragment to append to a WHERE clause,
// with arg numbering starting at argIndex. Empty when no organization is
// in context.
func (tenantScope) readClause(ctx context.Context, argIndex int) (string, []interface{}) {
	org := reqctx.OrganizationID(ctx)
	if org == "" {
		return "", nil
	}
	return fmt.Sprintf(" AND organization_id = $%d", argIndex), []interface{}{org}
}

// writeOrgID returns the organization id to stamp on a create: the
// contextual one when present, else the explicit value from the caller.
func (tenantScope) writeOrgID(ctx context.Context, explicit string) string {
	if org := reqctx.OrganizationID(ctx); org != "" {
		return org
	}
	return explicit
}
