package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	gradeLevelTag  = "gradelevel"
	gradeLevelText = "invalid grade level"

	bucketTag  = "bucket"
	bucketText = "invalid grade level bucket"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	levels := make([]string, 0, len(GradeLevels))
	for _, gl := range GradeLevels {
		levels = append(levels, string(gl))
	}
	_ = validate.RegisterValidation(gradeLevelTag, core.OneOfValidation(levels...))
	core.RegisterCustomTranslation(validate, translator, gradeLevelTag, gradeLevelText)

	buckets := make([]string, 0, len(Buckets))
	for _, b := range Buckets {
		buckets = append(buckets, string(b))
	}
	_ = validate.RegisterValidation(bucketTag, core.OneOfValidation(buckets...))
	core.RegisterCustomTranslation(validate, translator, bucketTag, bucketText)
}
