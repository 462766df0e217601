package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

const (
	otpKeyPrefix   = "otp:"
	resetKeyPrefix = "reset:"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = core.NewConflictError("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidOTP         = core.NewFieldError("otp", "invalid or expired code")
	ErrInvalidSession     = core.NewFieldError("session_id", "invalid or expired reset session")

	GenerateOTP = generateOTP // mockable
)

type (
	Repository interface {
		EmailExists(ctx context.Context, email, excludedID string, exec ...core.DBExecutor) (bool, error)
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName, User.Email, User.City or User.Country.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
		IncrementBookingsCount(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		cache    core.Cache
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}

	otpEntry struct {
		code      string
		attempts  int
		expiresAt time.Time
	}
)

func NewService(repo Repository, cache core.Cache, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedID string) error {
	exists, err := svc.repo.EmailExists(ctx, email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return ErrEmailExists
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		ID:        uuid.New().String(),
		Email:     nu.Email,
		FullName:  nu.FullName,
		City:      null.NewString(nu.City, nu.City != ""),
		Country:   null.NewString(nu.Country, nu.Country != ""),
		Phone:     null.NewString(nu.Phone, nu.Phone != ""),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendMail(usr, "Welcome aboard!", "welcome", map[string]interface{}{"Name": usr.FullName})
	return usr, nil
}

// Authenticate checks the credentials of an active User and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := core.NowFunc()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLoginAt = null.TimeFrom(now)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[User], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	users, total, err := svc.repo.QueryUsers(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[User]{}, errors.Wrap(err, "querying users")
	}
	return core.NewPaginated(users, total, page), nil
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := uu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if uu.Email != nil && *uu.Email != usr.Email {
		if err := svc.checkUniqueness(ctx, *uu.Email, usr.ID); err != nil {
			return User{}, err
		}
	}
	uu.apply(&usr)
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ToggleActive(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = !usr.IsActive
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// IncrementBookingsCount counts one more booking for the User.
func (svc *Service) IncrementBookingsCount(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return svc.repo.IncrementBookingsCount(ctx, id, exec...)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

// Password reset

// RequestPasswordReset emails a one-time code to the User, if an active one has this email.
// Unknown or inactive emails return no error, so that accounts cannot be enumerated.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}

	code, err := GenerateOTP()
	if err != nil {
		return errors.Wrap(err, "generating otp")
	}
	ttl := svc.conf.Auth.OTPTTL
	svc.cache.SetWithTTL(otpKeyPrefix+email, &otpEntry{code: code, expiresAt: core.NowFunc().Add(ttl)}, ttl)

	svc.sendMail(usr, "Your password reset code", "password_reset_otp", map[string]interface{}{
		"Name":      usr.FullName,
		"OTP":       code,
		"ExpiresIn": fmt.Sprintf("%d minutes", int(ttl.Minutes())),
	})
	return nil
}

// VerifyOTP consumes a valid code and opens a reset session whose id is returned.
// A code is deleted after too many wrong attempts.
func (svc *Service) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = core.CleanString(email, true /* lower */)
	key := otpKeyPrefix + email

	val, ok := svc.cache.Get(key)
	if !ok {
		return "", ErrInvalidOTP
	}
	entry, ok := val.(*otpEntry)
	if !ok {
		svc.cache.Delete(key)
		return "", ErrInvalidOTP
	}

	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(core.CleanString(code))) != 1 {
		next := *entry
		next.attempts++
		remaining := next.expiresAt.Sub(core.NowFunc())
		if next.attempts >= svc.conf.Auth.OTPMaxAttempts || remaining <= 0 {
			svc.cache.Delete(key)
		} else {
			svc.cache.SetWithTTL(key, &next, remaining)
		}
		return "", ErrInvalidOTP
	}

	svc.cache.Delete(key)
	sessionID := uuid.New().String()
	svc.cache.SetWithTTL(resetKeyPrefix+email, sessionID, svc.conf.Auth.ResetSessionTTL)
	return sessionID, nil
}

// ResetPassword sets a new password on the User owning an open reset session, then closes the session.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	key := resetKeyPrefix + rp.Email

	val, ok := svc.cache.Get(key)
	if sessionID, isStr := val.(string); !ok || !isStr ||
		subtle.ConstantTimeCompare([]byte(sessionID), []byte(core.CleanString(rp.SessionID))) != 1 {
		return ErrInvalidSession
	}

	usr, err := svc.repo.GetUserByEmail(ctx, rp.Email)
	if err != nil {
		if core.IsNotFound(err) {
			svc.cache.Delete(key)
			return ErrInvalidSession
		}
		return errors.Wrap(err, "finding user by email")
	}

	rp.fullName = usr.FullName
	if err = rp.Validate(svc.validate); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating password")
	}
	svc.cache.Delete(key)

	svc.sendMail(usr, "Your password was changed", "password_reset_done", map[string]interface{}{"Name": usr.FullName})
	return nil
}

// SetPassword sets pwd on the User with email, under the same policy as a reset.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	rp := ResetPassword{Email: usr.Email, SessionID: usr.ID, Password: pwd, fullName: usr.FullName}
	if err = rp.Validate(svc.validate); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating password")
}

func (svc *Service) sendMail(usr User, subject, tmpl string, data interface{}) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

// generateOTP returns a random 6-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
