package admin

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vistavoyage/voyage/core"
)

var (
	adminRoleTag  = "adminrole"
	adminRoleText = "invalid role"

	alphanumUnderscoreTag   = "alphanum_"
	alphanumUnderscoreText  = "{0} can only contain alphanumeric and underscore characters"
	alphanumUnderscoreRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(adminRoleTag, adminRoleValidation)
	core.RegisterCustomTranslation(validate, translator, adminRoleTag, adminRoleText)

	_ = validate.RegisterValidation(alphanumUnderscoreTag, alphanumUnderscoreValidation)
	core.RegisterCustomTranslation(validate, translator, alphanumUnderscoreTag, alphanumUnderscoreText)
}

// adminRoleValidation checks that the role is one of AllRoles
func adminRoleValidation(fl validator.FieldLevel) bool {
	_, ok := rolePriorities[fl.Field().String()]
	return ok
}

func alphanumUnderscoreValidation(fl validator.FieldLevel) bool {
	return alphanumUnderscoreRegex.MatchString(fl.Field().String())
}
