package offer

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

func TestOffer_IsValid(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	base := Offer{
		DiscountPercentage: null.Float64From(10),
		ValidFrom:          now.Add(-24 * time.Hour),
		ValidUntil:         now.Add(24 * time.Hour),
		IsActive:           true,
	}
	with := func(mod func(o *Offer)) Offer {
		o := base
		mod(&o)
		return o
	}

	tests := []struct {
		name  string
		offer Offer
		want  bool
	}{
		{name: "valid", offer: base, want: true},
		{name: "inactive", offer: with(func(o *Offer) { o.IsActive = false })},
		{name: "not started", offer: with(func(o *Offer) { o.ValidFrom = now.Add(time.Minute) })},
		{name: "ended", offer: with(func(o *Offer) { o.ValidUntil = now.Add(-time.Minute) })},
		{name: "used up", offer: with(func(o *Offer) { o.TotalUsageLimit = null.IntFrom(5); o.CurrentUsageCount = 5 })},
		{name: "uses left", offer: with(func(o *Offer) { o.TotalUsageLimit = null.IntFrom(5); o.CurrentUsageCount = 4 }), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offer.IsValid(now))
		})
	}
}

func TestOffer_Apply(t *testing.T) {
	tests := []struct {
		name  string
		offer Offer
		price float64
		want  float64
	}{
		{name: "percentage", offer: Offer{DiscountPercentage: null.Float64From(15)}, price: 1200, want: 1020},
		{name: "percentage rounded", offer: Offer{DiscountPercentage: null.Float64From(33)}, price: 99.99, want: 66.99},
		{name: "amount", offer: Offer{DiscountAmount: null.Float64From(250)}, price: 1200, want: 950},
		{name: "amount above price", offer: Offer{DiscountAmount: null.Float64From(2000)}, price: 1200},
		{name: "percentage wins", offer: Offer{DiscountPercentage: null.Float64From(50), DiscountAmount: null.Float64From(1)}, price: 100, want: 50},
		{name: "no discount", offer: Offer{}, price: 1200, want: 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offer.Apply(tt.price))
		})
	}
}

func TestInput_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	pct, amount, tooMuch := 10.0, 50.0, 120.0
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	tests := []struct {
		name      string
		in        Input
		wantField string
	}{
		{name: "percentage", in: Input{Title: "June", DiscountPercentage: &pct, ValidFrom: from, ValidUntil: until}},
		{name: "amount", in: Input{Title: "June", DiscountAmount: &amount, ValidFrom: from, ValidUntil: until}},
		{name: "no discount", in: Input{Title: "June", ValidFrom: from, ValidUntil: until}, wantField: "DiscountPercentage"},
		{
			name:      "both discounts",
			in:        Input{Title: "June", DiscountPercentage: &pct, DiscountAmount: &amount, ValidFrom: from, ValidUntil: until},
			wantField: "DiscountPercentage",
		},
		{name: "over 100%", in: Input{Title: "June", DiscountPercentage: &tooMuch, ValidFrom: from, ValidUntil: until}, wantField: "DiscountPercentage"},
		{name: "ends before start", in: Input{Title: "June", DiscountAmount: &amount, ValidFrom: until, ValidUntil: from}, wantField: "ValidUntil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantField, vErrs[0].StructField())
		})
	}
}
