package offer

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

type Offer struct {
	ID                 string       `db:"id" json:"id"`
	Title              string       `db:"title" json:"title"`
	Description        string       `db:"description" json:"description"`
	DiscountPercentage null.Float64 `db:"discount_percentage" json:"discount_percentage"`
	DiscountAmount     null.Float64 `db:"discount_amount" json:"discount_amount"`
	MaxUsagePerUser    null.Int     `db:"max_usage_per_user" json:"max_usage_per_user"`
	TotalUsageLimit    null.Int     `db:"total_usage_limit" json:"total_usage_limit"`
	CurrentUsageCount  int          `db:"current_usage_count" json:"current_usage_count"`
	ValidFrom          time.Time    `db:"valid_from" json:"valid_from"`
	ValidUntil         time.Time    `db:"valid_until" json:"valid_until"`
	IsActive           bool         `db:"is_active" json:"is_active"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// IsValid reports whether the offer can be applied at now.
func (o Offer) IsValid(now time.Time) bool {
	if !o.IsActive || now.Before(o.ValidFrom) || now.After(o.ValidUntil) {
		return false
	}
	return !o.TotalUsageLimit.Valid || o.CurrentUsageCount < o.TotalUsageLimit.Int
}

// Apply returns the discounted price, never below zero.
func (o Offer) Apply(price float64) float64 {
	switch {
	case o.DiscountPercentage.Valid:
		return core.RoundMoney(price * (1 - o.DiscountPercentage.Float64/100))
	case o.DiscountAmount.Valid:
		return core.RoundMoney(math.Max(0, price-o.DiscountAmount.Float64))
	default:
		return price
	}
}

type Input struct {
	Title              string    `json:"title" validate:"required,notblank,max=200"`
	Description        string    `json:"description"`
	DiscountPercentage *float64  `json:"discount_percentage" validate:"omitempty,gt=0,lte=100"`
	DiscountAmount     *float64  `json:"discount_amount" validate:"omitempty,gt=0"`
	MaxUsagePerUser    *int      `json:"max_usage_per_user" validate:"omitempty,min=1"`
	TotalUsageLimit    *int      `json:"total_usage_limit" validate:"omitempty,min=1"`
	ValidFrom          time.Time `json:"valid_from" validate:"required"`
	ValidUntil         time.Time `json:"valid_until" validate:"required,gtfield=ValidFrom"`
	IsActive           *bool     `json:"is_active"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	in.ValidFrom = in.ValidFrom.UTC()
	in.ValidUntil = in.ValidUntil.UTC()
	return validate.Struct(in)
}

func (in Input) apply(o *Offer) {
	o.Title = in.Title
	o.Description = in.Description
	o.DiscountPercentage = null.Float64FromPtr(in.DiscountPercentage)
	o.DiscountAmount = null.Float64FromPtr(in.DiscountAmount)
	o.MaxUsagePerUser = null.IntFromPtr(in.MaxUsagePerUser)
	o.TotalUsageLimit = null.IntFromPtr(in.TotalUsageLimit)
	o.ValidFrom = in.ValidFrom
	o.ValidUntil = in.ValidUntil
	if in.IsActive != nil {
		o.IsActive = *in.IsActive
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`

	// set by the service
	ValidAt        time.Time `query:"-"`
	ExpiringBefore time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Stats struct {
	Total        int `db:"total" json:"total"`
	Active       int `db:"active" json:"active"`
	Valid        int `db:"valid" json:"valid"`
	ExpiringSoon int `db:"expiring_soon" json:"expiring_soon"`
}
