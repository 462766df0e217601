package booking

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/tour"
)

// booking statuses
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
)

// payment statuses
const (
	PaymentPending       = "pending"
	PaymentPartiallyPaid = "partially_paid"
	PaymentPaid          = "paid"
	PaymentFailed        = "failed"
	PaymentRefunded      = "refunded"
)

var (
	Statuses        = []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRefunded}
	PaymentStatuses = []string{PaymentPending, PaymentPartiallyPaid, PaymentPaid, PaymentFailed, PaymentRefunded}
	PaymentMethods  = []string{"card", "bank_transfer", "paypal", "cash"}

	transitions = map[string][]string{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCancelled: {StatusRefunded},
	}
)

// CancellationNotice is how long before travel a confirmed booking can no longer be cancelled.
const CancellationNotice = 24 * time.Hour

// CanTransition reports whether a booking can go from status `from` to `to`.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsStatus(s string) bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                 string      `db:"id" json:"id"`
	PackageID          string      `db:"package_id" json:"package_id"`
	UserID             string      `db:"user_id" json:"user_id"`
	PromoCodeID        null.String `db:"promo_code_id" json:"promo_code_id"`
	Status             string      `db:"status" json:"status"`
	PaymentStatus      string      `db:"payment_status" json:"payment_status"`
	TravelDate         time.Time   `db:"travel_date" json:"travel_date"`
	Travelers          int         `db:"travelers" json:"travelers"`
	SpecialRequests    string      `db:"special_requests" json:"special_requests"`
	ContactPhone       string      `db:"contact_phone" json:"contact_phone"`
	SubtotalAmount     float64     `db:"subtotal_amount" json:"subtotal_amount"`
	DiscountAmount     float64     `db:"discount_amount" json:"discount_amount"`
	TotalAmount        float64     `db:"total_amount" json:"total_amount"`
	PaidAmount         float64     `db:"paid_amount" json:"paid_amount"`
	BookingDate        time.Time   `db:"booking_date" json:"booking_date"`
	CancellationDate   null.Time   `db:"cancellation_date" json:"cancellation_date"`
	CancellationReason string      `db:"cancellation_reason" json:"cancellation_reason"`
	Version            int         `db:"version" json:"-"` // bumped by every update
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`

	// joined
	PackageTitle string `db:"package_title" json:"package_title"`
	UserName     string `db:"user_name" json:"user_name"`
	UserEmail    string `db:"user_email" json:"user_email"`
}

// Outstanding is what remains to be paid.
func (b Booking) Outstanding() float64 {
	return core.RoundMoney(b.TotalAmount - b.PaidAmount)
}

type Payment struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Method    string    `db:"method" json:"method"`
	Reference string    `db:"reference" json:"reference"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Detail is a Booking with its package and payments.
type Detail struct {
	Booking
	Package  tour.Package `json:"package"`
	Payments []Payment    `json:"payments"`
}

type NewBooking struct {
	PackageID       string    `json:"package_id" validate:"required"`
	TravelDate      time.Time `json:"travel_date" validate:"required"`
	Travelers       int       `json:"travelers" validate:"required,min=1"`
	SpecialRequests string    `json:"special_requests" validate:"max=1000"`
	ContactPhone    string    `json:"contact_phone" validate:"max=30"`
	PromoCode       string    `json:"promo_code" validate:"max=50"`
}

func (nb *NewBooking) Validate(validate *validator.Validate) error {
	nb.PackageID = core.CleanString(nb.PackageID)
	nb.TravelDate = nb.TravelDate.UTC()
	nb.SpecialRequests = core.CleanString(nb.SpecialRequests)
	nb.ContactPhone = core.CleanString(nb.ContactPhone)
	nb.PromoCode = core.CleanString(nb.PromoCode)
	return validate.Struct(nb)
}

type Cancel struct {
	Reason string `json:"reason" validate:"max=500"`
}

type Pay struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required,paymentmethod"`
	Reference string  `json:"reference" validate:"max=100"`
}

func (p *Pay) Validate(validate *validator.Validate) error {
	p.Amount = core.RoundMoney(p.Amount)
	p.Method = core.CleanString(p.Method, true /* lower */)
	p.Reference = core.CleanString(p.Reference)
	return validate.Struct(p)
}

type StatusUpdate struct {
	Status string `json:"status" validate:"required,bookingstatus"`
	Reason string `json:"reason" validate:"max=500"`
}

type QueryFilter struct {
	Search        string `query:"search"`
	Status        string `query:"status"`
	PaymentStatus string `query:"payment_status"`
	PackageID     string `query:"package_id"`

	// set by the service
	UserID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.PaymentStatus = core.CleanString(qf.PaymentStatus, true /* lower */)
	qf.PackageID = core.CleanString(qf.PackageID)
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Revenue  float64        `json:"revenue"`
}
