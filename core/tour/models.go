package tour

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/triptype"
)

const (
	PublicPageLimit    = 12
	PublicMaxPageLimit = 50
	FeaturedLimit      = 6
	FeaturedMaxLimit   = 20
	MaxSuggestions     = 8
	DefaultGroupSize   = 20
)

type (
	Details struct {
		Highlights      core.StringList `db:"highlights" json:"highlights"`
		Itinerary       string          `db:"itinerary" json:"itinerary"`
		Inclusions      core.StringList `db:"inclusions" json:"inclusions"`
		Exclusions      core.StringList `db:"exclusions" json:"exclusions"`
		TermsConditions string          `db:"terms_conditions" json:"terms_conditions"`
	}

	Schedule struct {
		MaxGroupSize   int       `db:"max_group_size" json:"max_group_size"`
		AvailableFrom  null.Time `db:"available_from" json:"available_from"`
		AvailableUntil null.Time `db:"available_until" json:"available_until"`
	}

	// Package is a bookable tour package.
	Package struct {
		ID             string      `db:"id" json:"id"`
		Title          string      `db:"title" json:"title"`
		Description    string      `db:"description" json:"description"`
		Price          float64     `db:"price" json:"price"`
		DurationDays   int         `db:"duration_days" json:"duration_days"`
		DurationNights int         `db:"duration_nights" json:"duration_nights"`
		DestinationID  string      `db:"destination_id" json:"destination_id"`
		TripTypeID     null.String `db:"trip_type_id" json:"trip_type_id"`
		OfferID        null.String `db:"offer_id" json:"offer_id"`
		Difficulty     string      `db:"difficulty" json:"difficulty"`
		FeaturedImage  string      `db:"featured_image" json:"featured_image"`
		IsFeatured     bool        `db:"is_featured" json:"is_featured"`
		IsActive       bool        `db:"is_active" json:"is_active"`
		Details        `json:"details"`
		Schedule       `json:"schedule"`
		CreatedAt      time.Time `db:"created_at" json:"created_at"`
		UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

		DestinationName string  `db:"destination_name" json:"destination_name"`
		EffectivePrice  float64 `db:"-" json:"effective_price"`
	}

	// PackageDetail is a Package with its relations loaded.
	PackageDetail struct {
		Package
		Destination destination.Destination `json:"destination"`
		TripType    *triptype.TripType      `json:"trip_type"`
		Offer       *offer.Offer            `json:"offer"`
		Activities  []activity.Activity     `json:"activities"`
	}

	Suggestion struct {
		ID              string `db:"id" json:"id"`
		Title           string `db:"title" json:"title"`
		DestinationName string `db:"destination_name" json:"destination_name"`
	}

	Stats struct {
		Total        int     `db:"total" json:"total"`
		Active       int     `db:"active" json:"active"`
		Featured     int     `db:"featured" json:"featured"`
		AveragePrice float64 `db:"average_price" json:"average_price"`
	}
)

// ComputeEffectivePrice applies o to the price when o is valid at now.
func (p Package) ComputeEffectivePrice(o *offer.Offer, now time.Time) float64 {
	if o != nil && p.OfferID.Valid && o.ID == p.OfferID.String && o.IsValid(now) {
		return o.Apply(p.Price)
	}
	return p.Price
}

// IsAvailable reports whether the package is active and now is inside its availability window.
func (p Package) IsAvailable(now time.Time) bool {
	return p.IsActive && p.InWindow(now)
}

// InWindow reports whether t is inside the optional availability window (day granularity).
func (p Package) InWindow(t time.Time) bool {
	day := core.StartOfDay(t)
	if p.AvailableFrom.Valid && day.Before(core.StartOfDay(p.AvailableFrom.Time)) {
		return false
	}
	if p.AvailableUntil.Valid && day.After(core.StartOfDay(p.AvailableUntil.Time)) {
		return false
	}
	return true
}

type Input struct {
	Title           string     `json:"title" validate:"required,notblank,max=200"`
	Description     string     `json:"description"`
	Price           float64    `json:"price" validate:"required,gt=0"`
	DurationDays    int        `json:"duration_days" validate:"required,min=1,max=365"`
	DurationNights  int        `json:"duration_nights" validate:"min=0,ltefield=DurationDays"`
	DestinationID   string     `json:"destination_id" validate:"required"`
	TripTypeID      string     `json:"trip_type_id"`
	OfferID         string     `json:"offer_id"`
	Difficulty      string     `json:"difficulty" validate:"omitempty,difficulty"`
	FeaturedImage   string     `json:"featured_image" validate:"omitempty,max=500"`
	IsFeatured      *bool      `json:"is_featured"`
	IsActive        *bool      `json:"is_active"`
	Highlights      []string   `json:"highlights" validate:"omitempty,dive,notblank"`
	Itinerary       string     `json:"itinerary"`
	Inclusions      []string   `json:"inclusions" validate:"omitempty,dive,notblank"`
	Exclusions      []string   `json:"exclusions" validate:"omitempty,dive,notblank"`
	TermsConditions string     `json:"terms_conditions"`
	MaxGroupSize    int        `json:"max_group_size" validate:"omitempty,min=1,max=500"`
	AvailableFrom   *time.Time `json:"available_from"`
	AvailableUntil  *time.Time `json:"available_until"`
	ActivityIDs     []string   `json:"activity_ids"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	in.DestinationID = core.CleanString(in.DestinationID)
	in.TripTypeID = core.CleanString(in.TripTypeID)
	in.OfferID = core.CleanString(in.OfferID)
	in.Difficulty = core.CleanString(in.Difficulty, true /* lower */)
	in.FeaturedImage = core.CleanString(in.FeaturedImage)
	in.ActivityIDs = uniqueStrings(in.ActivityIDs)
	return validate.Struct(in)
}

func (in Input) apply(p *Package) {
	p.Title = in.Title
	p.Description = in.Description
	p.Price = core.RoundMoney(in.Price)
	p.DurationDays = in.DurationDays
	p.DurationNights = in.DurationNights
	p.DestinationID = in.DestinationID
	p.TripTypeID = null.NewString(in.TripTypeID, in.TripTypeID != "")
	p.OfferID = null.NewString(in.OfferID, in.OfferID != "")
	p.Difficulty = in.Difficulty
	if p.Difficulty == "" {
		p.Difficulty = core.DifficultyEasy
	}
	if in.FeaturedImage != "" {
		p.FeaturedImage = in.FeaturedImage
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.Highlights = in.Highlights
	p.Itinerary = in.Itinerary
	p.Inclusions = in.Inclusions
	p.Exclusions = in.Exclusions
	p.TermsConditions = in.TermsConditions
	p.MaxGroupSize = in.MaxGroupSize
	if p.MaxGroupSize == 0 {
		p.MaxGroupSize = DefaultGroupSize
	}
	p.AvailableFrom = timeFromPtr(in.AvailableFrom)
	p.AvailableUntil = timeFromPtr(in.AvailableUntil)
}

func timeFromPtr(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func uniqueStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = core.CleanString(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

type QueryFilter struct {
	Search        string   `query:"search"`
	DestinationID string   `query:"destination_id"`
	TripTypeID    string   `query:"trip_type_id"`
	Difficulty    string   `query:"difficulty"`
	MinPrice      *float64 `query:"min_price"`
	MaxPrice      *float64 `query:"max_price"`
	IsActive      *bool    `query:"is_active"`
	IsFeatured    *bool    `query:"is_featured"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.DestinationID = core.CleanString(qf.DestinationID)
	qf.TripTypeID = core.CleanString(qf.TripTypeID)
	qf.Difficulty = core.CleanString(qf.Difficulty, true /* lower */)
}

// cacheKey renders the filter values, not the pointers.
func (qf QueryFilter) cacheKey() string {
	f := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', 2, 64)
	}
	b := func(v *bool) string {
		if v == nil {
			return ""
		}
		return strconv.FormatBool(*v)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		qf.Search, qf.DestinationID, qf.TripTypeID, qf.Difficulty, f(qf.MinPrice), f(qf.MaxPrice), b(qf.IsActive), b(qf.IsFeatured))
}
