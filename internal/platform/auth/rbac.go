package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole allows the request through when the actor holds any of the
// given roles. Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles)+1)
	allowed[RoleAdmin] = struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, role := range RolesFromContext(c.Request().Context()) {
				if _, ok := allowed[role]; ok {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}
