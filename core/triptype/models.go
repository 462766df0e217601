package triptype

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

type TripType struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	PackageCount int `db:"package_count" json:"package_count"`
}

type Input struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"max=50"`
	IsActive    *bool  `json:"is_active"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	in.Category = core.CleanString(in.Category)
	return validate.Struct(in)
}

func (in Input) apply(tt *TripType) {
	tt.Name = in.Name
	tt.Description = in.Description
	tt.Category = in.Category
	if in.IsActive != nil {
		tt.IsActive = *in.IsActive
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
}
