package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kanchangiri67/OncoCist/internal/api/middleware"
	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// ctxAccount returns the account injected by the Auth middleware. A missing
// account means the route was mounted without the gate.
func ctxAccount(c echo.Context) (*domain.Account, error) {
	account := middleware.Account(c)
	if account == nil {
		return nil, domain.ErrUnauthorized
	}
	return account, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}
