package offer

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	discountKindTag  = "discountkind"
	discountKindText = "exactly one of discount_percentage or discount_amount is required"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(offerStructValidation, Input{})
	core.RegisterCustomTranslation(validate, translator, discountKindTag, discountKindText)
}

// offerStructValidation checks that exactly one discount kind is set.
func offerStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if (in.DiscountPercentage == nil) == (in.DiscountAmount == nil) {
		sl.ReportError(in.DiscountPercentage, "discount_percentage", "DiscountPercentage", discountKindTag, "")
	}
}
