package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// RBAC admits accounts whose position is listed. It reads the account set by
// Auth, so it must be mounted after the access gate.
func RBAC(positions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := Account(c)
			if account == nil {
				return domain.ErrUnauthorized
			}
			if !lo.Contains(positions, account.Position) {
				c.Logger().Warnf("position %q denied on %s %s", account.Position, c.Request().Method, c.Path())
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
