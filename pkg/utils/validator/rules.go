package validator

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// TagNonBlank rejects strings that are empty after trimming whitespace.
const TagNonBlank = "nonblank"

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNonBlank, validateNonBlank)
	_ = v.validate.RegisterTranslation(TagNonBlank, v.trans,
		func(trans ut.Translator) error {
			return trans.Add(TagNonBlank, "{0} must not be blank", true)
		},
		func(trans ut.Translator, fe validator.FieldError) string {
			msg, _ := trans.T(TagNonBlank, fe.Field())
			return msg
		},
	)
}

func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
