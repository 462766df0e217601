package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/user"
)

const passwordResetRequested = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with a code to reset your password."

func (s *server) registerAccountAPI(g *echo.Group) {
	// un-authed endpoints
	g.POST("/register", s.register)
	g.POST("/login", s.login)
	g.POST("/refresh", s.refreshToken)
	g.POST("/forgot-password", s.forgotPassword)
	g.POST("/verify-otp", s.verifyOTP)
	g.POST("/reset-password", s.resetPassword)

	// authed endpoints
	ag := g.Group("", append(s.users.middleware(), s.userMiddleware)...)
	ag.POST("/logout", s.logout)
	ag.GET("/profile", s.profile)
	ag.PATCH("/profile", s.updateProfile)
}

// Handlers

func (s *server) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := s.deps.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	tokens, err := s.users.Issue(usr.Principal(), "")
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Message: "Login successful", TokenPair: tokens, User: usr})
}

func (s *server) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	tokens, err := s.users.rotate(data.RefreshToken, func(sub string) (core.Principal, string, error) {
		usr, err := s.deps.UserSvc.GetByID(reqCtx, sub)
		if err != nil {
			if core.IsNotFound(err) {
				return core.Principal{}, "", errInvalidToken
			}
			return core.Principal{}, "", errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return core.Principal{}, "", user.ErrAccountDeactivated
		}
		return usr.Principal(), "", nil
	})
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, tokens)
}

func (s *server) logout(ctx echo.Context) error {
	var data LogoutRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.users.logout(ctx, data.RefreshToken); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (s *server) forgotPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		s.deps.Logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: passwordResetRequested})
}

func (s *server) verifyOTP(ctx echo.Context) error {
	var data VerifyOTPRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	sessionID, err := s.deps.UserSvc.VerifyOTP(ctx.Request().Context(), data.Email, data.OTP)
	if err != nil {
		return errors.Wrap(err, "verifying otp")
	}
	return ctx.JSON(http.StatusOK, VerifyOTPResponse{Message: "Code verified", SessionID: sessionID})
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data user.ResetPassword
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset with the new password."})
}

func (s *server) profile(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) updateProfile(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data user.UpdateUser
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err = s.deps.UserSvc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// Admin endpoints

func (s *server) queryUsers(ctx echo.Context) error {
	var filter user.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *server) retrieveUser(ctx echo.Context) error {
	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) toggleUserStatus(ctx echo.Context) error {
	usr, err := s.deps.UserSvc.ToggleActive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling user status")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) destroyUser(ctx echo.Context) error {
	if err := s.deps.UserSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Message string `json:"message"`
		TokenPair
		User user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifyOTPRequest struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6,numeric"`
	}

	VerifyOTPResponse struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (vr *VerifyOTPRequest) Validate(validate *validator.Validate) error {
	vr.Email = core.CleanString(vr.Email, true /* lower */)
	vr.OTP = core.CleanString(vr.OTP)
	return validate.Struct(vr)
}
