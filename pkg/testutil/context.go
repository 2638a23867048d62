package testutil

import (
	"context"
	"net/http"
	"time"

	id "certitrack/pkg/domain"
	"certitrack/pkg/requestcontext"
)

// TenantContext returns a context carrying a tenant scope, simulating what
// the auth middleware does for authenticated requests.
func TenantContext(tenantID id.TenantID) context.Context {
	return requestcontext.WithTenantID(context.Background(), tenantID)
}

// ActorContext returns a context carrying a full authenticated identity.
func ActorContext(tenantID id.TenantID, userID id.UserID, name string) context.Context {
	ctx := requestcontext.WithTenantID(context.Background(), tenantID)
	ctx = requestcontext.WithUserID(ctx, userID)
	return requestcontext.WithActorName(ctx, name)
}

// WithTenant attaches a tenant scope to a request, as the auth middleware
// would.
func WithTenant(req *http.Request, tenantID id.TenantID) *http.Request {
	return req.WithContext(requestcontext.WithTenantID(req.Context(), tenantID))
}

// WithActor attaches tenant, user, and display name to a request.
func WithActor(req *http.Request, tenantID id.TenantID, userID id.UserID, name string) *http.Request {
	ctx := requestcontext.WithTenantID(req.Context(), tenantID)
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithActorName(ctx, name)
	return req.WithContext(ctx)
}

// WithFrozenTime pins the request-scoped clock.
func WithFrozenTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// FrozenContext returns a context whose request clock is pinned to t.
func FrozenContext(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}
