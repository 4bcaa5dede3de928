package workpermit

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	statusTag  = "permitstatus"
	statusText = "{0} must be one of draft, submitted, approved, rejected"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	allowed := make([]string, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		allowed = append(allowed, string(s))
	}
	_ = validate.RegisterValidation(statusTag, core.OneOfValidation(allowed...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
