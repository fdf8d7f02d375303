package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// RBAC enforces role-based access control for a caller attached by Auth.
// With no roles any authenticated caller is allowed.
func RBAC(requiredRoles ...string) echo.MiddlewareFunc {
	required := append([]string(nil), requiredRoles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := domain.CallerFrom(c.Request().Context())
			if !ok {
				metrics.AccessDecisionsTotal.WithLabelValues(c.Path(), "unauthorized").Inc()
				return domain.ErrUnauthorized
			}
			if len(required) > 0 && !caller.HasAny(required...) {
				metrics.AccessDecisionsTotal.WithLabelValues(c.Path(), "forbidden").Inc()
				return &domain.ForbiddenError{Required: required}
			}

			metrics.AccessDecisionsTotal.WithLabelValues(c.Path(), "granted").Inc()
			return next(c)
		}
	}
}
