package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/admin"
)

func (s *server) registerAdminAuthAPI(g *echo.Group) {
	g.POST("/login", s.adminLogin)
	g.POST("/refresh", s.adminRefreshToken)

	ag := g.Group("", append(s.admins.middleware(), s.requireRole(editorOnly))...)
	ag.POST("/logout", s.adminLogout)
	ag.GET("/me", s.adminMe)
	ag.POST("/change-password", s.adminChangePassword)
	ag.POST("/create", s.createAdmin, s.requireRole(superAdminOnly))
	ag.GET("/admins", s.queryAdmins, s.requireRole(superAdminOnly))
	ag.GET("/roles", s.queryAdminRoles)
}

func (s *server) adminLogin(ctx echo.Context) error {
	var data AdminLoginRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	adm, err := s.deps.AdminSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating admin")
	}
	tokens, err := s.admins.Issue(adm.Principal(), adm.Role)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return ctx.JSON(http.StatusOK, AdminLoginResponse{Message: "Login successful", TokenPair: tokens, Admin: adm})
}

func (s *server) adminRefreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	tokens, err := s.admins.rotate(data.RefreshToken, func(sub string) (core.Principal, string, error) {
		adm, err := s.deps.AdminSvc.GetByID(reqCtx, sub)
		if err != nil {
			if core.IsNotFound(err) {
				return core.Principal{}, "", errInvalidToken
			}
			return core.Principal{}, "", errors.Wrap(err, "finding admin by ID")
		}
		if !adm.IsActive {
			return core.Principal{}, "", admin.ErrAccountDeactivated
		}
		return adm.Principal(), adm.Role, nil
	})
	if err != nil {
		return errors.Wrap(err, "refreshing admin token")
	}
	return ctx.JSON(http.StatusOK, tokens)
}

func (s *server) adminLogout(ctx echo.Context) error {
	var data LogoutRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.admins.logout(ctx, data.RefreshToken); err != nil {
		return errors.Wrap(err, "logging out admin")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (s *server) adminMe(ctx echo.Context) error {
	adm, err := s.getContextAdmin(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context admin")
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (s *server) adminChangePassword(ctx echo.Context) error {
	adm, err := s.getContextAdmin(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context admin")
	}
	var data admin.ChangePassword
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.deps.AdminSvc.ChangePassword(ctx.Request().Context(), adm, data); err != nil {
		return errors.Wrap(err, "changing admin password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

func (s *server) createAdmin(ctx echo.Context) error {
	creator, err := s.getContextAdmin(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context admin")
	}
	var data admin.NewAdmin
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	adm, err := s.deps.AdminSvc.Create(ctx.Request().Context(), creator, data)
	if err != nil {
		return errors.Wrap(err, "creating admin")
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (s *server) queryAdmins(ctx echo.Context) error {
	var filter admin.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	admins, err := s.deps.AdminSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (s *server) queryAdminRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, admin.Roles)
}

type (
	AdminLoginRequest struct {
		Username string `json:"username" validate:"required"` // username or email
		Password string `json:"password" validate:"required"`
	}

	AdminLoginResponse struct {
		Message string `json:"message"`
		TokenPair
		Admin admin.Admin `json:"admin"`
	}
)

func (lr *AdminLoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
