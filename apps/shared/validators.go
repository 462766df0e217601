// Package shared wires the pieces both binaries need.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/user"
)

// NewValidator returns a validator with the custom validations and error messages of every core package.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)
	offer.InitValidators(validate, translator)
	tour.InitValidators(validate, translator)
	promo.InitValidators(validate, translator)
	booking.InitValidators(validate, translator)
	blog.InitValidators(validate, translator)
	return validate, translator
}
