package shared

import "context"

// RequestContext identifies who issued a request and for which tenant.
type RequestContext struct {
	TenantID int64
	ActorID  int64
}

type requestContextKey struct{}

// ContextWithRequest stores the request identity in context.
func ContextWithRequest(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestFromContext extracts the request identity. The boolean reports
// whether one was attached.
func RequestFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
