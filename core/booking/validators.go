package booking

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	statusTag  = "bookingstatus"
	statusText = "{0} must be one of [" + strings.Join(Statuses, ", ") + "]"

	methodTag  = "paymentmethod"
	methodText = "{0} must be one of [" + strings.Join(PaymentMethods, ", ") + "]"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return IsStatus(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(methodTag, func(fl validator.FieldLevel) bool {
		m := fl.Field().String()
		for _, pm := range PaymentMethods {
			if m == pm {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, methodTag, methodText)
}
