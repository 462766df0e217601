package sqlxrepos

import (
	"context"
	"time"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/admin"
)

type adminRepository struct {
	repo
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(exec core.DBExecutor) *adminRepository {
	return &adminRepository{repo{exec: exec}}
}

var adminOrdering = fields("username", "email", "full_name", "role", "last_login_at", "created_at")

func (r adminRepository) Exists(ctx context.Context, username, email string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, r.getExec(exec), "SELECT id FROM admins WHERE LOWER(username) = ? OR LOWER(email) = ?", username, email)
}

func (r adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO admins (id, username, email, full_name, role, is_active, password_hash, last_login_at, created_at, updated_at)
		VALUES (:id, :username, :email, :full_name, :role, :is_active, :password_hash, :last_login_at, :created_at, :updated_at)`, adm)
	if err != nil {
		return admin.Admin{}, err
	}
	return adm, nil
}

func (r adminRepository) GetAdminByID(ctx context.Context, id string, exec ...core.DBExecutor) (admin.Admin, error) {
	var adm admin.Admin
	err := get(ctx, r.getExec(exec), admin.ErrNotFound, &adm, "SELECT * FROM admins WHERE id = ?", id)
	return adm, err
}

func (r adminRepository) GetAdminByLogin(ctx context.Context, login string, exec ...core.DBExecutor) (admin.Admin, error) {
	var adm admin.Admin
	err := get(ctx, r.getExec(exec), admin.ErrNotFound, &adm,
		"SELECT * FROM admins WHERE LOWER(username) = ? OR LOWER(email) = ?", login, login)
	return adm, err
}

func (r adminRepository) QueryAdmins(ctx context.Context, filter admin.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]admin.Admin, int, error) {
	var where core.Where
	where.Search(filter.Search, "username", "email", "full_name")
	if filter.Role != "" {
		where.Add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	return queryPage[admin.Admin](ctx, r.getExec(exec), "SELECT * FROM admins", &where, ordering, adminOrdering, "created_at DESC", page)
}

func (r adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE admins SET username = :username, email = :email, full_name = :full_name, role = :role,
		                  is_active = :is_active, password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`, adm)
	if err != nil {
		return admin.Admin{}, err
	}
	if err = execOne(ctx, e, admin.ErrNotFound, q, args...); err != nil {
		return admin.Admin{}, err
	}
	return adm, nil
}

func (r adminRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), admin.ErrNotFound, "UPDATE admins SET last_login_at = ? WHERE id = ?", at, id)
}
