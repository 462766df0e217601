package activity

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

type Activity struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Description     string       `db:"description" json:"description"`
	ActivityType    string       `db:"activity_type" json:"activity_type"`
	DurationHours   null.Float64 `db:"duration_hours" json:"duration_hours"`
	DifficultyLevel string       `db:"difficulty_level" json:"difficulty_level"`
	AgeRestriction  string       `db:"age_restriction" json:"age_restriction"`
	FeaturedImage   string       `db:"featured_image" json:"featured_image"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

type Input struct {
	Name            string   `json:"name" validate:"required,notblank,max=200"`
	Description     string   `json:"description"`
	ActivityType    string   `json:"activity_type" validate:"max=50"`
	DurationHours   *float64 `json:"duration_hours" validate:"omitempty,gt=0,lte=720"`
	DifficultyLevel string   `json:"difficulty_level" validate:"omitempty,difficulty"`
	AgeRestriction  string   `json:"age_restriction" validate:"max=100"`
	FeaturedImage   string   `json:"featured_image" validate:"omitempty,max=500"`
	IsActive        *bool    `json:"is_active"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	in.ActivityType = core.CleanString(in.ActivityType, true /* lower */)
	in.DifficultyLevel = core.CleanString(in.DifficultyLevel, true /* lower */)
	in.AgeRestriction = core.CleanString(in.AgeRestriction)
	in.FeaturedImage = core.CleanString(in.FeaturedImage)
	return validate.Struct(in)
}

func (in Input) apply(a *Activity) {
	a.Name = in.Name
	a.Description = in.Description
	a.ActivityType = in.ActivityType
	a.DurationHours = null.Float64FromPtr(in.DurationHours)
	a.DifficultyLevel = in.DifficultyLevel
	if a.DifficultyLevel == "" {
		a.DifficultyLevel = core.DifficultyEasy
	}
	a.AgeRestriction = in.AgeRestriction
	if in.FeaturedImage != "" {
		a.FeaturedImage = in.FeaturedImage
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
}

type QueryFilter struct {
	Search          string `query:"search"`
	ActivityType    string `query:"activity_type"`
	DifficultyLevel string `query:"difficulty_level"`
	IsActive        *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ActivityType = core.CleanString(qf.ActivityType, true /* lower */)
	qf.DifficultyLevel = core.CleanString(qf.DifficultyLevel, true /* lower */)
}

type TypeCount struct {
	ActivityType string `db:"activity_type" json:"activity_type"`
	Count        int    `db:"count" json:"count"`
}

type Stats struct {
	Total    int         `json:"total"`
	Active   int         `json:"active"`
	Inactive int         `json:"inactive"`
	ByType   []TypeCount `json:"by_type"`
}
