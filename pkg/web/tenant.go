package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/fieldflow/fieldflow/pkg/models"
)

// Tenant identity arrives pre-resolved from the upstream gateway.
const (
	TenantHeader = "X-Tenant-ID"
	UserHeader   = "X-User-ID"
)

const tenantLocalKey = "tenant_context"

// RequireTenant rejects requests that carry no tenant identity and stores the
// resolved context for downstream handlers.
func RequireTenant() fiber.Handler {
	return func(c fiber.Ctx) error {
		tctx := models.TenantContext{
			TenantID: c.Get(TenantHeader),
			UserID:   c.Get(UserHeader),
		}

		if err := tctx.Validate(); err != nil {
			return unauthorized(c, "missing "+TenantHeader+" header")
		}

		c.Locals(tenantLocalKey, tctx)

		return c.Next()
	}
}

func tenantFromCtx(c fiber.Ctx) models.TenantContext {
	tctx, _ := c.Locals(tenantLocalKey).(models.TenantContext)

	return tctx
}
