package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

const accountKey = "account"

// Authenticator resolves a bearer access token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
}

// Auth is the access gate for protected routes. It validates the bearer token,
// loads the account it names and stores it in the echo context.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthorized
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return domain.ErrUnauthorized
			}

			account, err := authn.Authenticate(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			SetAccount(c, account)
			return next(c)
		}
	}
}

func SetAccount(c echo.Context, a *domain.Account) {
	c.Set(accountKey, a)
}

// Account returns the account stored by Auth, or nil on unprotected routes.
func Account(c echo.Context) *domain.Account {
	a, _ := c.Get(accountKey).(*domain.Account)
	return a
}
