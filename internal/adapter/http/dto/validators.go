package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// eventNameRe accepts dotted identifiers such as "user.created" or "invoice.payment_failed".
var eventNameRe = regexp.MustCompile(`^[a-zA-Z0-9_\-]+(\.[a-zA-Z0-9_\-]+)*$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("event_name", validateEventName)
	}
}

func validateEventName(fl validator.FieldLevel) bool {
	return ValidEventName(fl.Field().String())
}

// ValidEventName reports whether name is an acceptable event name.
func ValidEventName(name string) bool {
	return eventNameRe.MatchString(name)
}
