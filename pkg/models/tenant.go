package models

import "errors"

// ErrTenantRequired indicates an operation was attempted without a resolved
// tenant. Tenant resolution is the caller's responsibility; the engine never
// derives it on its own.
var ErrTenantRequired = errors.New("tenant is required")

// TenantContext carries the already-resolved tenant and acting user through
// every public operation. It replaces the ambient per-call auth lookup of the
// previous design.
type TenantContext struct {
	TenantID string `json:"tenant_id" validate:"required"`
	UserID   string `json:"user_id,omitempty"`
}

// Validate checks that the context identifies a tenant.
func (t TenantContext) Validate() error {
	if t.TenantID == "" {
		return ErrTenantRequired
	}

	return nil
}
