package idcard

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	cardTypeTag  = "cardtype"
	cardTypeText = "{0} must be one of student, parent, teacher"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	allowed := make([]string, 0, len(AllCardTypes))
	for _, ct := range AllCardTypes {
		allowed = append(allowed, string(ct))
	}
	_ = validate.RegisterValidation(cardTypeTag, core.OneOfValidation(allowed...))
	core.RegisterCustomTranslation(validate, translator, cardTypeTag, cardTypeText)
}
