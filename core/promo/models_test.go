package promo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func newCode(mod ...func(*PromoCode)) PromoCode {
	p := PromoCode{
		Code:          "SUMMER",
		DiscountType:  DiscountPercentage,
		DiscountValue: 10,
		StartDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	for _, m := range mod {
		m(&p)
	}
	return p
}

func TestPromoCode_invalidReason(t *testing.T) {
	midSummer := time.Date(2024, 7, 15, 13, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		code  PromoCode
		today time.Time
		want  string
	}{
		{name: "valid", code: newCode(), today: midSummer},
		{name: "first day", code: newCode(), today: time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC)},
		{name: "last day, late", code: newCode(), today: time.Date(2024, 8, 31, 23, 59, 0, 0, time.UTC)},
		{
			name:  "inactive",
			code:  newCode(func(p *PromoCode) { p.IsActive = false }),
			today: midSummer,
			want:  "promo code is inactive",
		},
		{name: "too early", code: newCode(), today: time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC), want: "promo code is not active yet"},
		{name: "expired", code: newCode(), today: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), want: "promo code has expired"},
		{
			name: "limit reached",
			code: newCode(func(p *PromoCode) {
				p.UsageLimit = null.IntFrom(3)
				p.UsedCount = 3
			}),
			today: midSummer,
			want:  "usage limit reached",
		},
		{
			name: "below limit",
			code: newCode(func(p *PromoCode) {
				p.UsageLimit = null.IntFrom(3)
				p.UsedCount = 2
			}),
			today: midSummer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.invalidReason(tt.today))
			assert.Equal(t, tt.want == "", tt.code.IsValid(tt.today))
		})
	}
}

func TestPromoCode_RemainingUses(t *testing.T) {
	assert.Nil(t, newCode().RemainingUses())

	p := newCode(func(p *PromoCode) { p.UsageLimit = null.IntFrom(5); p.UsedCount = 2 })
	require.NotNil(t, p.RemainingUses())
	assert.Equal(t, 3, *p.RemainingUses())

	// an admin may lower the limit below the uses already made
	p.UsageLimit = null.IntFrom(1)
	assert.Equal(t, 0, *p.RemainingUses())
}

func TestPromoCode_CalculateDiscount(t *testing.T) {
	today := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		code   PromoCode
		amount float64
		want   float64
	}{
		{name: "percentage", code: newCode(), amount: 1234.5, want: 123.45},
		{name: "percentage rounded", code: newCode(func(p *PromoCode) { p.DiscountValue = 12.5 }), amount: 99.99, want: 12.5},
		{
			name: "percentage capped",
			code: newCode(func(p *PromoCode) {
				p.DiscountValue = 50
				p.MaximumDiscount = null.Float64From(200)
			}),
			amount: 1000,
			want:   200,
		},
		{
			name:   "fixed",
			code:   newCode(func(p *PromoCode) { p.DiscountType = DiscountFixed; p.DiscountValue = 75 }),
			amount: 300,
			want:   75,
		},
		{
			name:   "fixed above amount",
			code:   newCode(func(p *PromoCode) { p.DiscountType = DiscountFixed; p.DiscountValue = 500 }),
			amount: 120,
			want:   120,
		},
		{
			name:   "below minimum",
			code:   newCode(func(p *PromoCode) { p.MinimumAmount = 500 }),
			amount: 499.99,
		},
		{
			name:   "at minimum",
			code:   newCode(func(p *PromoCode) { p.MinimumAmount = 500 }),
			amount: 500,
			want:   50,
		},
		{name: "zero amount", code: newCode(), amount: 0},
		{name: "inactive", code: newCode(func(p *PromoCode) { p.IsActive = false }), amount: 1000},
		{
			name:   "exhausted",
			code:   newCode(func(p *PromoCode) { p.UsageLimit = null.IntFrom(1); p.UsedCount = 1 }),
			amount: 1000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.CalculateDiscount(tt.amount, today))
		})
	}

	// day granularity: still valid on its expiry day
	p := newCode()
	assert.Equal(t, 10.0, p.CalculateDiscount(100, time.Date(2024, 8, 31, 22, 0, 0, 0, time.UTC)))
	assert.Zero(t, p.CalculateDiscount(100, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SUMMER-24", NormalizeCode("  summer-24\t"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestEvalRule(t *testing.T) {
	rc := Context{
		Amount:        1500,
		Travelers:     3,
		PackageID:     "pkg-1",
		DestinationID: "dest-1",
		Email:         "jane@voyage.test",
	}
	tests := []struct {
		name    string
		rule    string
		want    bool
		wantErr bool
	}{
		{name: "empty rule", want: true},
		{name: "amount and travelers", rule: "amount >= 1000 && travelers > 1", want: true},
		{name: "not enough travelers", rule: "travelers >= 4"},
		{name: "package list", rule: `package_id in ["pkg-1", "pkg-2"]`, want: true},
		{name: "email domain", rule: `email endsWith "@voyage.test"`, want: true},
		{name: "unset trip type", rule: `trip_type_id == ""`, want: true},
		{name: "unknown variable", rule: "nights > 3", wantErr: true},
		{name: "not a bool", rule: "amount * 2", wantErr: true},
		{name: "syntax error", rule: "amount >=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalRule(tt.rule, rc)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileRule_cached(t *testing.T) {
	first, err := CompileRule("amount > 10")
	require.NoError(t, err)
	second, err := CompileRule("amount > 10")
	require.NoError(t, err)
	assert.Same(t, first, second)
}
