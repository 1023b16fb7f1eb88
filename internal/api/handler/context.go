package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/api/middleware"
	"github.com/bookbound/library/internal/core/domain"
)

// ctxActor returns the actor injected by the Auth middleware. A missing actor
// means the route was registered without Auth; reject rather than run as
// nobody.
func ctxActor(c echo.Context) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.UserID == 0 {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name + " must be a positive integer")
	}
	return id, nil
}

// pageParams reads ?page= and ?limit=.
func pageParams(c echo.Context) (domain.Page, error) {
	var p domain.Page
	err := echo.QueryParamsBinder(c).
		Int("page", &p.Page).
		Int("limit", &p.Limit).
		BindError()
	if err != nil {
		return domain.Page{}, domain.Invalid("page and limit must be integers")
	}
	return p.Normalize(), nil
}
