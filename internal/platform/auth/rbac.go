package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles understood by the claims API.
const (
	// RoleAdmin satisfies every role check.
	RoleAdmin = "admin"
	// RoleClaims covers claim submission staff: reading and applying
	// adjudication documents.
	RoleClaims = "claims"
	// RoleReviewer covers medical reviewers, who read responses but never
	// apply them.
	RoleReviewer = "reviewer"
)

// RequireRole lets the request through when the caller holds at least one of
// the given roles. RoleAdmin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
