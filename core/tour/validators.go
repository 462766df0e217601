package tour

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	windowTag  = "window"
	windowText = "available_until must not be before available_from"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(packageStructValidation, Input{})
	core.RegisterCustomTranslation(validate, translator, windowTag, windowText)
}

// packageStructValidation checks the availability window.
func packageStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if in.AvailableFrom != nil && in.AvailableUntil != nil && in.AvailableUntil.Before(*in.AvailableFrom) {
		sl.ReportError(in.AvailableUntil, "available_until", "AvailableUntil", windowTag, "")
	}
}
