package shared

import "context"

// TenantContext identifies the tenant a command executes under. Store and
// ledger operations take it explicitly; there is no process-global tenant.
type TenantContext struct {
	TenantID string
}

// Valid reports whether the tenant context carries a tenant id.
func (t TenantContext) Valid() bool {
	return t.TenantID != ""
}

type tenantContextKey struct{}

// ContextWithTenant stores the tenant context in ctx.
func ContextWithTenant(ctx context.Context, tenant TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant context from ctx.
func TenantFromContext(ctx context.Context) TenantContext {
	tenant, _ := ctx.Value(tenantContextKey{}).(TenantContext)
	return tenant
}
