package admin

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/vistavoyage/voyage/core"
)

// Roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleEditor}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RoleAdmin:      20,
		RoleEditor:     10,
	}

	Roles = []Role{
		{Name: "Editor", Value: RoleEditor},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// HasRole reports whether role is at least as high as min.
func HasRole(role, min string) bool {
	return RolePriority(role) > 0 && RolePriority(role) >= RolePriority(min)
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Admin is a back-office account.
type Admin struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	PasswordHash string    `db:"password_hash" json:"-"`
	LastLoginAt  null.Time `db:"last_login_at" json:"last_login_at"` // UTC
	CreatedAt    time.Time `db:"created_at" json:"created_at"`       // UTC
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`       // UTC
}

func (a *Admin) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(pwd))
}

func (a Admin) HasRole(min string) bool { return HasRole(a.Role, min) }

func (a Admin) Principal() core.Principal {
	return core.Principal{ID: a.ID, Username: a.Username, Email: a.Email}
}

// NewAdmin contains information needed to create a new Admin.
type NewAdmin struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,notblank,max=100"`
	Role     string `json:"role" validate:"required,adminrole"`
	Password string `json:"password" validate:"required,min=8"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FullName = core.CleanString(na.FullName)
	na.Role = core.CleanString(na.Role, true /* lower */)
	if na.Role == "" {
		na.Role = RoleEditor
	}
	return validate.Struct(na)
}

type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
