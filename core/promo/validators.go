package promo

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	codeRegex = regexp.MustCompile(`^[A-Z0-9_-]{3,50}$`)
	codeTag   = "promocode"
	codeText  = "{0} must be 3 to 50 characters among A-Z, 0-9, _ and -"

	discountTypeTag  = "discounttype"
	discountTypeText = "{0} must be one of [percentage, fixed]"

	percentMaxTag  = "percentmax"
	percentMaxText = "a percentage discount cannot exceed 100"

	expiryTag  = "expiry"
	expiryText = "expiry_date cannot be before start_date"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(codeTag, func(fl validator.FieldLevel) bool {
		return codeRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, codeTag, codeText)

	_ = validate.RegisterValidation(discountTypeTag, func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == DiscountPercentage || v == DiscountFixed
	})
	core.RegisterCustomTranslation(validate, translator, discountTypeTag, discountTypeText)

	validate.RegisterStructValidation(promoStructValidation, Input{})
	core.RegisterCustomTranslation(validate, translator, percentMaxTag, percentMaxText)
	core.RegisterCustomTranslation(validate, translator, expiryTag, expiryText)
}

func promoStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if in.DiscountType == DiscountPercentage && in.DiscountValue > 100 {
		sl.ReportError(in.DiscountValue, "discount_value", "DiscountValue", percentMaxTag, "")
	}
	if !in.StartDate.IsZero() && !in.ExpiryDate.IsZero() && in.ExpiryDate.Before(in.StartDate) {
		sl.ReportError(in.ExpiryDate, "expiry_date", "ExpiryDate", expiryTag, "")
	}
}
