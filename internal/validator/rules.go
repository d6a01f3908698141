package validator

import (
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// SupportedLanguages are the languages the judge accepts
var SupportedLanguages = []string{"c", "cpp", "java", "python", "go", "javascript"}

func (v *Validator) registerBusinessRules() {
	_ = v.validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return slices.Contains(SupportedLanguages, fl.Field().String())
	})

	_ = v.validate.RegisterValidation("verdict", func(fl validator.FieldLevel) bool {
		switch models.Verdict(fl.Field().String()) {
		case models.VerdictPassed, models.VerdictFailed, models.VerdictCompileError, models.VerdictRuntimeError:
			return true
		}
		return false
	})
}
