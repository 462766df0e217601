package sqlxrepos

import (
	"context"
	"time"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/user"
)

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repo{exec: exec}}
}

var userOrdering = fields("email", "full_name", "country", "city", "bookings_count", "last_login_at", "created_at", "updated_at")

func (r userRepository) EmailExists(ctx context.Context, email, excludedID string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, r.getExec(exec), "SELECT id FROM users WHERE LOWER(email) = ? AND id <> ?", email, excludedID)
}

func (r userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO users (id, email, full_name, city, country, phone, passport, password_hash, is_active,
		                   bookings_count, last_login_at, created_at, updated_at)
		VALUES (:id, :email, :full_name, :city, :country, :phone, :passport, :password_hash, :is_active,
		        :bookings_count, :last_login_at, :created_at, :updated_at)`, usr)
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (r userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := get(ctx, r.getExec(exec), user.ErrNotFound, &usr, "SELECT * FROM users WHERE id = ?", id)
	return usr, err
}

func (r userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := get(ctx, r.getExec(exec), user.ErrNotFound, &usr, "SELECT * FROM users WHERE LOWER(email) = ?", email)
	return usr, err
}

func (r userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, int, error) {
	var where core.Where
	where.Search(filter.Search, "full_name", "email", "city", "country")
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	return queryPage[user.User](ctx, r.getExec(exec), "SELECT * FROM users", &where, ordering, userOrdering, "created_at DESC", page)
}

func (r userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE users SET email = :email, full_name = :full_name, city = :city, country = :country, phone = :phone,
		                 passport = :passport, password_hash = :password_hash, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, usr)
	if err != nil {
		return user.User{}, err
	}
	if err = execOne(ctx, e, user.ErrNotFound, q, args...); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (r userRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), user.ErrNotFound, "UPDATE users SET last_login_at = ? WHERE id = ?", at, id)
}

func (r userRepository) IncrementBookingsCount(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), user.ErrNotFound, "UPDATE users SET bookings_count = bookings_count + 1 WHERE id = ?", id)
}

func (r userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), user.ErrNotFound, "DELETE FROM users WHERE id = ?", id)
}
