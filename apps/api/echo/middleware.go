package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core/admin"
)

// requireRole lets through active admins whose role is at least min.
// The admin is loaded from the DB so that role changes apply before the token expires.
func (s *server) requireRole(min string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			adm, err := s.getContextAdmin(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context admin")
			}
			if adm.HasRole(min) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// userMiddleware loads the active user of the token into the context.
func (s *server) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := s.getContextUser(ctx); err != nil {
			return errors.Wrap(err, "getting context user")
		}
		return next(ctx)
	}
}

var (
	editorOnly     = admin.RoleEditor
	adminOnly      = admin.RoleAdmin
	superAdminOnly = admin.RoleSuperAdmin
)
