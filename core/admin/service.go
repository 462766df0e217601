package admin

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("admin not found")
	ErrAdminExists        = core.NewConflictError("an admin with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrWrongPassword      = core.NewFieldError("current_password", "wrong password")
	ErrRoleTooHigh        = core.NewPermissionError("not enough rights to set this role")
	ErrShortPassword      = core.NewFieldError("password", "password must contain at least 8 characters")
)

type (
	Repository interface {
		Exists(ctx context.Context, username, email string, exec ...core.DBExecutor) (bool, error)
		CreateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		GetAdminByID(ctx context.Context, id string, exec ...core.DBExecutor) (Admin, error)
		// GetAdminByLogin finds an Admin by username or email.
		GetAdminByLogin(ctx context.Context, login string, exec ...core.DBExecutor) (Admin, error)
		QueryAdmins(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Admin, int, error)
		UpdateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Authenticate checks the credentials of an active Admin; login is a username or an email.
func (svc *Service) Authenticate(ctx context.Context, login, pwd string) (Admin, error) {
	adm, err := svc.repo.GetAdminByLogin(ctx, core.CleanString(login, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return Admin{}, ErrInvalidCredentials
		}
		return Admin{}, errors.Wrap(err, "finding admin by login")
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return Admin{}, ErrInvalidCredentials
	}
	if !adm.IsActive {
		return Admin{}, ErrAccountDeactivated
	}

	now := core.NowFunc()
	if err = svc.repo.SetLastLogin(ctx, adm.ID, now); err != nil {
		return Admin{}, errors.Wrap(err, "setting last login")
	}
	adm.LastLoginAt = null.TimeFrom(now)
	return adm, nil
}

// Create adds an Admin on behalf of creator, who must be a super admin and cannot grant a role above their own.
func (svc *Service) Create(ctx context.Context, creator Admin, na NewAdmin) (Admin, error) {
	if !creator.HasRole(RoleSuperAdmin) {
		return Admin{}, core.NewPermissionError("only super admins can create admins")
	}
	if err := na.Validate(svc.validate); err != nil {
		return Admin{}, err
	}
	if RolePriority(na.Role) > RolePriority(creator.Role) {
		return Admin{}, ErrRoleTooHigh
	}
	return svc.create(ctx, na)
}

// CreateUnchecked adds an Admin without a creator, for bootstrapping from the command line.
func (svc *Service) CreateUnchecked(ctx context.Context, na NewAdmin) (Admin, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Admin{}, err
	}
	return svc.create(ctx, na)
}

func (svc *Service) create(ctx context.Context, na NewAdmin) (Admin, error) {
	exists, err := svc.repo.Exists(ctx, na.Username, na.Email)
	if err != nil {
		return Admin{}, errors.Wrap(err, "checking admin uniqueness")
	}
	if exists {
		return Admin{}, ErrAdminExists
	}

	now := core.NowFunc()
	adm := Admin{
		ID:        uuid.New().String(),
		Username:  na.Username,
		Email:     na.Email,
		FullName:  na.FullName,
		Role:      na.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = adm.SetPassword(na.Password); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	adm, err = svc.repo.CreateAdmin(ctx, adm)
	return adm, errors.Wrap(err, "creating admin")
}

func (svc *Service) ChangePassword(ctx context.Context, adm Admin, cp ChangePassword) error {
	if err := cp.Validate(svc.validate); err != nil {
		return err
	}
	if err := adm.CheckPassword(cp.CurrentPassword); err != nil {
		return ErrWrongPassword
	}
	return svc.SetPassword(ctx, adm, cp.NewPassword)
}

func (svc *Service) SetPassword(ctx context.Context, adm Admin, pwd string) error {
	if err := adm.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	adm.UpdatedAt = core.NowFunc()
	_, err := svc.repo.UpdateAdmin(ctx, adm)
	return errors.Wrap(err, "updating admin")
}

// ResetPassword sets pwd on the Admin with login without asking for the current password.
func (svc *Service) ResetPassword(ctx context.Context, login, pwd string) error {
	adm, err := svc.GetByLogin(ctx, login)
	if err != nil {
		return err
	}
	if err = svc.validate.Var(pwd, "required,min=8"); err != nil {
		return ErrShortPassword
	}
	return svc.SetPassword(ctx, adm, pwd)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Admin, error) {
	return svc.repo.GetAdminByID(ctx, id)
}

func (svc *Service) GetByLogin(ctx context.Context, login string) (Admin, error) {
	return svc.repo.GetAdminByLogin(ctx, core.CleanString(login, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Admin], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	admins, total, err := svc.repo.QueryAdmins(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Admin]{}, errors.Wrap(err, "querying admins")
	}
	return core.NewPaginated(admins, total, page), nil
}
