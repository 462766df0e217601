package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/vistavoyage/voyage/core"
)

// User is a customer account.
type User struct {
	ID            string      `db:"id" json:"id"`
	Email         string      `db:"email" json:"email"`
	FullName      string      `db:"full_name" json:"full_name"`
	City          null.String `db:"city" json:"city"`
	Country       null.String `db:"country" json:"country"`
	Phone         null.String `db:"phone" json:"phone"`
	Passport      null.String `db:"passport" json:"passport"`
	PasswordHash  string      `db:"password_hash" json:"-"`
	IsActive      bool        `db:"is_active" json:"is_active"`
	BookingsCount int         `db:"bookings_count" json:"bookings_count"`
	LastLoginAt   null.Time   `db:"last_login_at" json:"last_login_at"` // UTC
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`       // UTC
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`       // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

func (u User) Principal() core.Principal {
	return core.Principal{ID: u.ID, Username: u.FullName, Email: u.Email}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FullName        string `json:"full_name" validate:"required,notblank,max=100"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"omitempty,eqfield=Password"`
	City            string `json:"city" validate:"max=100"`
	Country         string `json:"country" validate:"max=100"`
	Phone           string `json:"phone" validate:"max=30"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.City = core.CleanString(nu.City)
	nu.Country = core.CleanString(nu.Country)
	nu.Phone = core.CleanString(nu.Phone)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// nil fields are left unchanged.
type UpdateUser struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	FullName *string `json:"full_name" validate:"omitempty,notblank,max=100"`
	City     *string `json:"city" validate:"omitempty,max=100"`
	Country  *string `json:"country" validate:"omitempty,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Passport *string `json:"passport" validate:"omitempty,max=50"`
}

func cleanPtr(s *string, lower ...bool) *string {
	if s == nil {
		return nil
	}
	cs := core.CleanString(*s, lower...)
	return &cs
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Email = cleanPtr(uu.Email, true /* lower */)
	uu.FullName = cleanPtr(uu.FullName)
	uu.City = cleanPtr(uu.City)
	uu.Country = cleanPtr(uu.Country)
	uu.Phone = cleanPtr(uu.Phone)
	uu.Passport = cleanPtr(uu.Passport)
	return validate.Struct(uu)
}

func (uu UpdateUser) apply(usr *User) {
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.FullName != nil {
		usr.FullName = *uu.FullName
	}
	optional := func(s *string, dst *null.String) {
		if s != nil {
			*dst = null.NewString(*s, *s != "")
		}
	}
	optional(uu.City, &usr.City)
	optional(uu.Country, &usr.Country)
	optional(uu.Phone, &usr.Phone)
	optional(uu.Passport, &usr.Passport)
}

// ResetPassword is the last step of the password reset flow.
type ResetPassword struct {
	Email           string `json:"email" validate:"required,email"`
	SessionID       string `json:"session_id" validate:"required"`
	Password        string `json:"new_password" validate:"required"`
	PasswordConfirm string `json:"confirm_password" validate:"omitempty,eqfield=Password"`

	// for the similarity check
	fullName string
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	rp.SessionID = core.CleanString(rp.SessionID)
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
