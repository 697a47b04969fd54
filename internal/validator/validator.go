// Package validator wires custom binding validators into gin and
// translates binding failures into caller-facing messages.
package validator

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

// Register installs the custom validators on gin's binding engine.
// Must be called once before the router is built.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	return v.RegisterValidation("dateformat", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		parsed, err := time.Parse(DateLayout, value)
		return err == nil && parsed.Format(DateLayout) == value
	})
}

// ValidDate reports whether value is a calendar date in YYYY-MM-DD form.
func ValidDate(value string) bool {
	parsed, err := time.Parse(DateLayout, value)
	return err == nil && parsed.Format(DateLayout) == value
}

var tagMessages = map[string]string{
	"required":   "Faltan campos requeridos",
	"email":      "Email inválido",
	"dateformat": "Formato de fecha inválido",
}

// Message translates a binding error into a message safe to return.
// Malformed JSON and unknown tags fall back to a generic message.
func Message(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		if msg, ok := tagMessages[vErrs[0].Tag()]; ok {
			return msg
		}
	}
	return "Solicitud inválida"
}
