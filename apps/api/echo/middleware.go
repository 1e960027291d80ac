package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/ada/core/user"
)

var (
	readRoles  = []string{user.RoleCampusAdmin, user.RoleAccountant, user.RoleViewer}
	writeRoles = []string{user.RoleCampusAdmin, user.RoleAccountant}
	adminRoles = []string{user.RoleCampusAdmin}
)

// roleMiddleware only lets through users having one of `roles`. Super admins are always let through.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role == user.RoleSuperAdmin {
				return next(ctx)
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
