package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TenantResolver middleware resolves the tenant from the JWT claims or the
// X-Tenant-ID header (public endpoints like the inbound webhook carry the
// header).
func TenantResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var tenantID uuid.UUID

			if existing := c.Get("tenant_id"); existing != nil {
				if tid, ok := existing.(uuid.UUID); ok {
					tenantID = tid
				}
			}

			if tenantID == uuid.Nil {
				header := c.Request().Header.Get("X-Tenant-ID")
				if header != "" {
					tid, err := uuid.Parse(header)
					if err != nil {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid tenant ID format")
					}
					tenantID = tid
					c.Set("tenant_id", tenantID)
				}
			}

			return next(c)
		}
	}
}

// RequireTenant middleware ensures a tenant is present
func RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, ok := c.Get("tenant_id").(uuid.UUID)
			if !ok || tenantID == uuid.Nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Tenant ID is required")
			}
			return next(c)
		}
	}
}

// TenantFromContext extracts the resolved tenant ID in handlers
func TenantFromContext(c echo.Context) (uuid.UUID, error) {
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Tenant ID is required")
	}
	return tenantID, nil
}
