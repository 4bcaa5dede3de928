package account

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, core.OneOfValidation(AllRoles...))
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)
}
