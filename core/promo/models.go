package promo

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

var DiscountTypes = []string{DiscountPercentage, DiscountFixed}

type PromoCode struct {
	ID              string       `db:"id" json:"id"`
	Code            string       `db:"code" json:"code"`
	Description     string       `db:"description" json:"description"`
	DiscountType    string       `db:"discount_type" json:"discount_type"`
	DiscountValue   float64      `db:"discount_value" json:"discount_value"`
	MinimumAmount   float64      `db:"minimum_amount" json:"minimum_amount"`
	MaximumDiscount null.Float64 `db:"maximum_discount" json:"maximum_discount"`
	StartDate       time.Time    `db:"start_date" json:"start_date"`
	ExpiryDate      time.Time    `db:"expiry_date" json:"expiry_date"`
	UsageLimit      null.Int     `db:"usage_limit" json:"usage_limit"`
	UsedCount       int          `db:"used_count" json:"used_count"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	Rule            string       `db:"rule" json:"rule"`
	CreatedBy       null.String  `db:"created_by" json:"created_by"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// IsValid reports whether the code is active, today is within [start, expiry] (day granularity)
// and the usage limit is not reached.
func (p PromoCode) IsValid(today time.Time) bool {
	return p.invalidReason(today) == ""
}

func (p PromoCode) invalidReason(today time.Time) string {
	day := core.StartOfDay(today)
	switch {
	case !p.IsActive:
		return "promo code is inactive"
	case day.Before(core.StartOfDay(p.StartDate)):
		return "promo code is not active yet"
	case day.After(core.StartOfDay(p.ExpiryDate)):
		return "promo code has expired"
	case p.UsageLimit.Valid && p.UsedCount >= p.UsageLimit.Int:
		return "usage limit reached"
	}
	return ""
}

// RemainingUses is nil when the code has no usage limit.
func (p PromoCode) RemainingUses() *int {
	if !p.UsageLimit.Valid {
		return nil
	}
	n := p.UsageLimit.Int - p.UsedCount
	if n < 0 {
		n = 0
	}
	return &n
}

// CalculateDiscount returns the discount on amount, rounded to cents.
// It is 0 when the code is invalid at today or amount is below the minimum.
func (p PromoCode) CalculateDiscount(amount float64, today time.Time) float64 {
	if !p.IsValid(today) || amount <= 0 || amount < p.MinimumAmount {
		return 0
	}
	var discount float64
	switch p.DiscountType {
	case DiscountPercentage:
		discount = amount * p.DiscountValue / 100
	case DiscountFixed:
		discount = p.DiscountValue
	}
	if p.MaximumDiscount.Valid {
		discount = math.Min(discount, p.MaximumDiscount.Float64)
	}
	return core.RoundMoney(math.Min(discount, amount))
}

type Input struct {
	Code            string    `json:"code" validate:"required,promocode"`
	Description     string    `json:"description"`
	DiscountType    string    `json:"discount_type" validate:"required,discounttype"`
	DiscountValue   float64   `json:"discount_value" validate:"required,gt=0"`
	MinimumAmount   float64   `json:"minimum_amount" validate:"min=0"`
	MaximumDiscount *float64  `json:"maximum_discount" validate:"omitempty,gt=0"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	ExpiryDate      time.Time `json:"expiry_date" validate:"required"`
	UsageLimit      *int      `json:"usage_limit" validate:"omitempty,min=1"`
	IsActive        *bool     `json:"is_active"`
	Rule            string    `json:"rule" validate:"max=1000"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Code = NormalizeCode(in.Code)
	in.Description = core.CleanString(in.Description)
	in.DiscountType = core.CleanString(in.DiscountType, true /* lower */)
	in.StartDate = core.StartOfDay(in.StartDate)
	in.ExpiryDate = core.StartOfDay(in.ExpiryDate)
	in.Rule = core.CleanString(in.Rule)
	return validate.Struct(in)
}

func (in Input) apply(p *PromoCode) {
	p.Code = in.Code
	p.Description = in.Description
	p.DiscountType = in.DiscountType
	p.DiscountValue = core.RoundMoney(in.DiscountValue)
	p.MinimumAmount = core.RoundMoney(in.MinimumAmount)
	p.MaximumDiscount = null.Float64FromPtr(in.MaximumDiscount)
	p.StartDate = in.StartDate
	p.ExpiryDate = in.ExpiryDate
	p.UsageLimit = null.IntFromPtr(in.UsageLimit)
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.Rule = in.Rule
}

// NormalizeCode trims and uppercases a code as typed by a customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type QueryFilter struct {
	Search       string `query:"search"`
	DiscountType string `query:"discount_type"`
	IsActive     *bool  `query:"is_active"`

	// set by the service
	ValidOn time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.DiscountType = core.CleanString(qf.DiscountType, true /* lower */)
}

// Context is what a rule can look at.
type Context struct {
	Amount        float64 `json:"amount" expr:"amount"`
	Travelers     int     `json:"travelers" expr:"travelers"`
	PackageID     string  `json:"package_id" expr:"package_id"`
	DestinationID string  `json:"destination_id" expr:"destination_id"`
	TripTypeID    string  `json:"trip_type_id" expr:"trip_type_id"`
	Email         string  `json:"email" expr:"email"`
}

// Validation is the outcome of validating a code against an amount.
type Validation struct {
	IsValid        bool    `json:"is_valid"`
	Message        string  `json:"message"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	PromoCodeID    string  `json:"promo_code_id,omitempty"`
	RemainingUses  *int    `json:"remaining_uses"`
}

type ValidateRequest struct {
	Code          string  `json:"code" validate:"required_without=PromoCodeID"`
	PromoCodeID   string  `json:"promo_code_id"`
	Amount        float64 `json:"amount" validate:"min=0"`
	Travelers     int     `json:"travelers" validate:"min=0"`
	PackageID     string  `json:"package_id"`
	DestinationID string  `json:"destination_id"`
	TripTypeID    string  `json:"trip_type_id"`
}

func (vr ValidateRequest) context(email string) Context {
	return Context{
		Amount:        vr.Amount,
		Travelers:     vr.Travelers,
		PackageID:     vr.PackageID,
		DestinationID: vr.DestinationID,
		TripTypeID:    vr.TripTypeID,
		Email:         email,
	}
}

type Stats struct {
	Total     int `db:"total" json:"total"`
	Active    int `db:"active" json:"active"`
	Valid     int `db:"valid" json:"valid"`
	Expired   int `db:"expired" json:"expired"`
	Exhausted int `db:"exhausted" json:"exhausted"`
	TotalUses int `db:"total_uses" json:"total_uses"`
}
