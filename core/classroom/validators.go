package classroom

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
)

var (
	subjectTag  = "subject"
	subjectText = fmt.Sprintf("subject must be one of %v", catalog.Subjects)

	gradeLevelTag  = "gradelevel"
	gradeLevelText = fmt.Sprintf("grade level must be between %d and %d", catalog.MinGrade, catalog.MaxGrade)
)

// InitValidators registers the classroom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjectTag, subjectValidation)
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)

	_ = validate.RegisterValidation(gradeLevelTag, gradeLevelValidation)
	core.RegisterCustomTranslation(validate, translator, gradeLevelTag, gradeLevelText)
}

func subjectValidation(fl validator.FieldLevel) bool {
	return catalog.Subject(fl.Field().String()).Valid()
}

func gradeLevelValidation(fl validator.FieldLevel) bool {
	g := fl.Field().Int()
	return g >= catalog.MinGrade && g <= catalog.MaxGrade
}
