// Package reqctx carries per-request identity through context.Context.
// The HTTP layer establishes it before invoking core operations; every
// continuation running on behalf of the request, including fan-out
// goroutines that captured the context, observes the same values.
package reqctx

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type ctxKey struct{}

// RequestContext holds the identity of one request. UserID, OrganizationID
// and APIKeyID are populated by auth middleware after creation, so access
// goes through the mutex.
type RequestContext struct {
	mu             sync.RWMutex
	requestID      string
	userID         string
	organizationID string
	apiKeyID       string
	ipAddress      string
	userAgent      string
}

// New creates a request context with a fresh request id.
func New(ipAddress, userAgent string) *RequestContext {
	return &RequestContext{
		requestID: uuid.NewString(),
		ipAddress: ipAddress,
		userAgent: userAgent,
	}
}

// With attaches rc to ctx.
func With(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From returns the request context attached to ctx, or nil.
func From(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

func (rc *RequestContext) RequestID() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.requestID
}

func (rc *RequestContext) UserID() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.userID
}

func (rc *RequestContext) OrganizationID() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.organizationID
}

func (rc *RequestContext) APIKeyID() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.apiKeyID
}

func (rc *RequestContext) IPAddress() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.ipAddress
}

func (rc *RequestContext) UserAgent() string {
	if rc == nil {
		return ""
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.userAgent
}

func (rc *RequestContext) SetUserID(id string) {
	rc.mu.Lock()
	rc.userID = id
	rc.mu.Unlock()
}

func (rc *RequestContext) SetOrganizationID(id string) {
	rc.mu.Lock()
	rc.organizationID = id
	rc.mu.Unlock()
}

func (rc *RequestContext) SetAPIKeyID(id string) {
	rc.mu.Lock()
	rc.apiKeyID = id
	rc.mu.Unlock()
}

// OrganizationID is a convenience accessor for the tenant interceptor.
func OrganizationID(ctx context.Context) string {
	return From(ctx).OrganizationID()
}

// UserID returns the authenticated user id in ctx, if any.
func UserID(ctx context.Context) string {
	return From(ctx).UserID()
}

// APIKeyID returns the API key id in ctx, if any.
func APIKeyID(ctx context.Context) string {
	return From(ctx).APIKeyID()
}
