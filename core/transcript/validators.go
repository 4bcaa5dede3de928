package transcript

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	provenanceTag  = "provenance"
	provenanceText = "invalid course provenance"

	courseLevelTag  = "courselevel"
	courseLevelText = "level must be one of regular, honors or ap"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	provenances := make([]string, 0, len(Provenances))
	for _, p := range Provenances {
		provenances = append(provenances, string(p))
	}
	_ = validate.RegisterValidation(provenanceTag, core.OneOfValidation(provenances...))
	core.RegisterCustomTranslation(validate, translator, provenanceTag, provenanceText)

	levels := make([]string, 0, len(Levels))
	for _, l := range Levels {
		levels = append(levels, string(l))
	}
	_ = validate.RegisterValidation(courseLevelTag, core.OneOfValidation(levels...))
	core.RegisterCustomTranslation(validate, translator, courseLevelTag, courseLevelText)
}
