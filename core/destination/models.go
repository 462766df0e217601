package destination

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

type Destination struct {
	ID              string      `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	Country         string      `db:"country" json:"country"`
	City            string      `db:"city" json:"city"`
	Description     string      `db:"description" json:"description"`
	BestTimeToVisit string      `db:"best_time_to_visit" json:"best_time_to_visit"`
	FeaturedImage   string      `db:"featured_image" json:"featured_image"`
	IsActive        bool        `db:"is_active" json:"is_active"`
	CreatedBy       null.String `db:"created_by" json:"created_by"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`

	PackageCount int `db:"package_count" json:"package_count"`
}

// Input holds the writable fields of a Destination, for both create and update.
type Input struct {
	Name            string `json:"name" validate:"required,notblank,max=200"`
	Country         string `json:"country" validate:"required,notblank,max=100"`
	City            string `json:"city" validate:"max=100"`
	Description     string `json:"description"`
	BestTimeToVisit string `json:"best_time_to_visit" validate:"max=100"`
	FeaturedImage   string `json:"featured_image" validate:"omitempty,max=500"`
	IsActive        *bool  `json:"is_active"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Country = core.CleanString(in.Country)
	in.City = core.CleanString(in.City)
	in.Description = core.CleanString(in.Description)
	in.BestTimeToVisit = core.CleanString(in.BestTimeToVisit)
	in.FeaturedImage = core.CleanString(in.FeaturedImage)
	return validate.Struct(in)
}

func (in Input) apply(d *Destination) {
	d.Name = in.Name
	d.Country = in.Country
	d.City = in.City
	d.Description = in.Description
	d.BestTimeToVisit = in.BestTimeToVisit
	if in.FeaturedImage != "" {
		d.FeaturedImage = in.FeaturedImage
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Country  string `query:"country"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Country = core.CleanString(qf.Country)
}
