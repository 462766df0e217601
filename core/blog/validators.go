package blog

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	categoryTag  = "blogcategory"
	categoryText = "{0} must be one of [" + strings.Join(Categories, ", ") + "]"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

// IsCategory matches case-insensitively.
func IsCategory(s string) bool {
	return normalizeCategory(s) != ""
}

func normalizeCategory(s string) string {
	for _, c := range Categories {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	return ""
}
