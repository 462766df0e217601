package sqlxrepos

import (
	"context"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/storage/database"
)

type bookingRepository struct {
	repo
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(exec core.DBExecutor) *bookingRepository {
	return &bookingRepository{repo{exec: exec}}
}

const bookingSelect = `
	SELECT b.*, p.title AS package_title, u.full_name AS user_name, u.email AS user_email
	FROM bookings b
	JOIN packages p ON p.id = b.package_id
	JOIN users u ON u.id = b.user_id`

var bookingOrdering = fields("travel_date", "booking_date", "total_amount", "status", "package_title", "created_at")

func (r bookingRepository) CreateBooking(ctx context.Context, b booking.Booking, exec ...core.DBExecutor) (booking.Booking, error) {
	e := r.getExec(exec)
	err := namedExec(ctx, e, `
		INSERT INTO bookings (id, package_id, user_id, promo_code_id, status, payment_status, travel_date, travelers,
		                      special_requests, contact_phone, subtotal_amount, discount_amount, total_amount,
		                      paid_amount, booking_date, cancellation_date, cancellation_reason, created_at, updated_at)
		VALUES (:id, :package_id, :user_id, :promo_code_id, :status, :payment_status, :travel_date, :travelers,
		        :special_requests, :contact_phone, :subtotal_amount, :discount_amount, :total_amount,
		        :paid_amount, :booking_date, :cancellation_date, :cancellation_reason, :created_at, :updated_at)`, b)
	if err != nil {
		return booking.Booking{}, err
	}
	return r.GetBookingByID(ctx, b.ID, e)
}

func (r bookingRepository) GetBookingByID(ctx context.Context, id string, exec ...core.DBExecutor) (booking.Booking, error) {
	var b booking.Booking
	err := get(ctx, r.getExec(exec), booking.ErrNotFound, &b, bookingSelect+" WHERE b.id = ?", id)
	return b, err
}

func (r bookingRepository) QueryBookings(ctx context.Context, filter booking.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]booking.Booking, int, error) {
	var where core.Where
	where.Search(filter.Search, "id", "package_title", "user_name")
	if filter.Status != "" {
		where.Add("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		where.Add("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PackageID != "" {
		where.Add("package_id = ?", filter.PackageID)
	}
	if filter.UserID != "" {
		where.Add("user_id = ?", filter.UserID)
	}
	return queryPage[booking.Booking](ctx, r.getExec(exec), bookingSelect, &where, ordering, bookingOrdering, "created_at DESC", page)
}

func (r bookingRepository) GetBookingForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (booking.Booking, error) {
	e := r.getExec(exec)
	q := bookingSelect + " WHERE b.id = ?"
	if e.DriverName() == database.EnginePostgres {
		q += " FOR UPDATE OF b"
	}
	var b booking.Booking
	err := get(ctx, e, booking.ErrNotFound, &b, q, id)
	return b, err
}

func (r bookingRepository) UpdateBookingStatus(ctx context.Context, b booking.Booking, exec ...core.DBExecutor) (booking.Booking, error) {
	return r.update(ctx, r.getExec(exec), b, `
		UPDATE bookings SET status = :status, payment_status = :payment_status,
		                    cancellation_date = :cancellation_date, cancellation_reason = :cancellation_reason,
		                    updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version`)
}

func (r bookingRepository) UpdateBookingPayment(ctx context.Context, b booking.Booking, exec ...core.DBExecutor) (booking.Booking, error) {
	return r.update(ctx, r.getExec(exec), b, `
		UPDATE bookings SET status = :status, payment_status = :payment_status, paid_amount = :paid_amount,
		                    updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version`)
}

// update runs a versioned write; no matching row means the booking changed since it was read.
func (r bookingRepository) update(ctx context.Context, e core.DBExecutor, b booking.Booking, query string) (booking.Booking, error) {
	q, args, err := e.BindNamed(query, b)
	if err != nil {
		return booking.Booking{}, err
	}
	if err = execOne(ctx, e, booking.ErrBookingChanged, q, args...); err != nil {
		return booking.Booking{}, err
	}
	return r.GetBookingByID(ctx, b.ID, e)
}

func (r bookingRepository) CreatePayment(ctx context.Context, p booking.Payment, exec ...core.DBExecutor) (booking.Payment, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO payments (id, booking_id, amount, method, reference, created_at)
		VALUES (:id, :booking_id, :amount, :method, :reference, :created_at)`, p)
	if err != nil {
		return booking.Payment{}, err
	}
	return p, nil
}

func (r bookingRepository) GetPayments(ctx context.Context, bookingID string, exec ...core.DBExecutor) ([]booking.Payment, error) {
	payments := []booking.Payment{}
	err := selectAll(ctx, r.getExec(exec), &payments,
		"SELECT * FROM payments WHERE booking_id = ? ORDER BY created_at", bookingID)
	return payments, err
}

func (r bookingRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) ([]booking.StatusCount, error) {
	var counts []booking.StatusCount
	err := selectAll(ctx, r.getExec(exec), &counts,
		"SELECT status, COUNT(*) AS count FROM bookings GROUP BY status ORDER BY status")
	return counts, err
}

func (r bookingRepository) Revenue(ctx context.Context, exec ...core.DBExecutor) (float64, error) {
	var total float64
	err := get(ctx, r.getExec(exec), nil, &total,
		"SELECT COALESCE(SUM(total_amount), 0) FROM bookings WHERE status IN (?, ?)",
		booking.StatusConfirmed, booking.StatusCompleted)
	return total, err
}
