package tour

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core/offer"
)

func TestPackage_ComputeEffectivePrice(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	o := offer.Offer{
		ID:                 "offer-1",
		DiscountPercentage: null.Float64From(15),
		ValidFrom:          now.AddDate(0, 0, -1),
		ValidUntil:         now.AddDate(0, 0, 1),
		IsActive:           true,
	}
	expired := o
	expired.ValidUntil = now.Add(-time.Hour)
	other := o
	other.ID = "offer-2"

	pkg := Package{Price: 1200, OfferID: null.StringFrom("offer-1")}
	tests := []struct {
		name  string
		pkg   Package
		offer *offer.Offer
		want  float64
	}{
		{name: "valid offer", pkg: pkg, offer: &o, want: 1020},
		{name: "expired offer", pkg: pkg, offer: &expired, want: 1200},
		{name: "someone else's offer", pkg: pkg, offer: &other, want: 1200},
		{name: "missing offer", pkg: pkg, want: 1200},
		{name: "no offer", pkg: Package{Price: 1200}, offer: &o, want: 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pkg.ComputeEffectivePrice(tt.offer, now))
		})
	}
}

func TestPackage_InWindow(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	windowed := Package{IsActive: true, Schedule: Schedule{AvailableFrom: null.TimeFrom(from), AvailableUntil: null.TimeFrom(until)}}
	openEnded := Package{IsActive: true, Schedule: Schedule{AvailableFrom: null.TimeFrom(from)}}

	tests := []struct {
		name string
		pkg  Package
		at   time.Time
		want bool
	}{
		{name: "day before", pkg: windowed, at: from.Add(-time.Minute)},
		{name: "first day", pkg: windowed, at: from.Add(15 * time.Hour), want: true},
		{name: "last day, late", pkg: windowed, at: until.Add(23 * time.Hour), want: true},
		{name: "day after", pkg: windowed, at: until.AddDate(0, 0, 1)},
		{name: "open ended", pkg: openEnded, at: from.AddDate(5, 0, 0), want: true},
		{name: "no window", pkg: Package{IsActive: true}, at: from, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pkg.InWindow(tt.at))
			assert.Equal(t, tt.want, tt.pkg.IsAvailable(tt.at))
		})
	}

	windowed.IsActive = false
	assert.False(t, windowed.IsAvailable(from))
}

func TestInput_apply(t *testing.T) {
	zero := time.Time{}
	in := Input{
		Title:         "Gorilla Trek",
		Price:         1999.999,
		DurationDays:  4,
		DestinationID: "dest-1",
		AvailableFrom: &zero,
		ActivityIDs:   []string{" a ", "b", "a", ""},
	}
	in.ActivityIDs = uniqueStrings(in.ActivityIDs)
	assert.Equal(t, []string{"a", "b"}, in.ActivityIDs)

	pkg := Package{IsActive: true, FeaturedImage: "/media/packages/old.jpg"}
	in.apply(&pkg)
	assert.Equal(t, 2000.0, pkg.Price)
	assert.Equal(t, "easy", pkg.Difficulty)
	assert.Equal(t, DefaultGroupSize, pkg.MaxGroupSize)
	assert.False(t, pkg.AvailableFrom.Valid)
	assert.False(t, pkg.TripTypeID.Valid)
	assert.Equal(t, "/media/packages/old.jpg", pkg.FeaturedImage)
	assert.True(t, pkg.IsActive)
}

func TestQueryFilter_cacheKey(t *testing.T) {
	lo, hi := 100.0, 100.0
	a := QueryFilter{Search: "safari", MinPrice: &lo}
	b := QueryFilter{Search: "safari", MinPrice: &hi}
	c := QueryFilter{Search: "safari", MaxPrice: &hi}
	assert.Equal(t, a.cacheKey(), b.cacheKey())
	assert.NotEqual(t, a.cacheKey(), c.cacheKey())
}
