package community

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	visibilityTag  = "visibility"
	visibilityText = "visibility must be public or private"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(visibilityTag, core.OneOfValidation(string(Public), string(Private)))
	core.RegisterCustomTranslation(validate, translator, visibilityTag, visibilityText)
}
